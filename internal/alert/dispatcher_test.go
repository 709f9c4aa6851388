package alert

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/contact"

	"github.com/pashagolub/pgxmock/v3"
)

func TestSendEmergencyAlert(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, name, phone`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "phone", "relationship", "created_at"}).
			AddRow("c-1", "user-1", "Amma", "9876543210", "Family", time.Now()).
			AddRow("c-2", "user-1", "Priya", "9876500000", "Friend", time.Now()))
	mock.ExpectExec(`INSERT INTO escalations`).
		WithArgs(pgxmock.AnyArg(), "user-1", 12.9, 77.6, "MG Road").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	var mu sync.Mutex
	var sent []string
	send := func(_ context.Context, phone, message string) error {
		mu.Lock()
		defer mu.Unlock()
		sent = append(sent, phone+": "+message)
		return nil
	}

	d := NewDispatcher(mock, contact.NewService(mock), send)
	if err := d.SendEmergencyAlert(context.Background(), "user-1", 12.9, 77.6, "MG Road"); err != nil {
		t.Fatalf("send alert: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(sent) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(sent))
	}
	if !strings.Contains(sent[0], "maps.google.com") || !strings.Contains(sent[0], "MG Road") {
		t.Fatalf("unexpected message: %s", sent[0])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSendEmergencyAlertAuditFailureStillSends(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, name, phone`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "phone", "relationship", "created_at"}).
			AddRow("c-1", "user-1", "Amma", "9876543210", "Family", time.Now()))
	mock.ExpectExec(`INSERT INTO escalations`).
		WithArgs(pgxmock.AnyArg(), "user-1", 0.0, 0.0, "").
		WillReturnError(errAlert)

	sent := 0
	send := func(context.Context, string, string) error {
		sent++
		return nil
	}

	d := NewDispatcher(mock, contact.NewService(mock), send)
	if err := d.SendEmergencyAlert(context.Background(), "user-1", 0, 0, ""); err != nil {
		t.Fatalf("expected alert to succeed despite audit failure, got %v", err)
	}
	if sent != 1 {
		t.Fatalf("expected SMS sent, got %d", sent)
	}
}

func TestSendEmergencyAlertContactsError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, name, phone`).
		WithArgs("user-1").
		WillReturnError(errAlert)

	d := NewDispatcher(mock, contact.NewService(mock), func(context.Context, string, string) error { return nil })
	if err := d.SendEmergencyAlert(context.Background(), "user-1", 0, 0, ""); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSendEmergencyAlertSMSFailuresJoined(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, user_id, name, phone`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "user_id", "name", "phone", "relationship", "created_at"}).
			AddRow("c-1", "user-1", "Amma", "9876543210", "Family", time.Now()).
			AddRow("c-2", "user-1", "Priya", "9876500000", "Friend", time.Now()))
	mock.ExpectExec(`INSERT INTO escalations`).
		WithArgs(pgxmock.AnyArg(), "user-1", 1.0, 2.0, "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	calls := 0
	send := func(context.Context, string, string) error {
		calls++
		return errAlert
	}

	d := NewDispatcher(mock, contact.NewService(mock), send)
	if err := d.SendEmergencyAlert(context.Background(), "user-1", 1, 2, ""); err == nil {
		t.Fatalf("expected joined error")
	}
	if calls != 2 {
		t.Fatalf("expected every contact attempted, got %d", calls)
	}
}

func TestEmergencyMessageNoLocation(t *testing.T) {
	msg := emergencyMessage(0, 0, "")
	if !strings.Contains(msg, "Location unavailable") {
		t.Fatalf("unexpected message: %s", msg)
	}
}

func TestCallerDefaultsToLog(t *testing.T) {
	c := NewCaller(nil)
	if err := c.PlaceCall(context.Background(), "112"); err != nil {
		t.Fatalf("place call: %v", err)
	}
}

func TestCallerUsesInjectedFunc(t *testing.T) {
	var dialed string
	c := NewCaller(func(_ context.Context, number string) error {
		dialed = number
		return nil
	})
	if err := c.PlaceCall(context.Background(), "112"); err != nil {
		t.Fatalf("place call: %v", err)
	}
	if dialed != "112" {
		t.Fatalf("expected injected func used, got %q", dialed)
	}
}

var errAlert = errors.New("alert error")
