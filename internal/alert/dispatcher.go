package alert

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/Yamuna-Lakshmanan/HelpNow/internal/contact"
	"github.com/Yamuna-Lakshmanan/HelpNow/internal/db"

	"github.com/google/uuid"
)

// SendSMSFunc hands one message to the SMS gateway. Raw SMS transmission is
// a device/provider concern; the default just logs.
type SendSMSFunc func(ctx context.Context, phone, message string) error

// PlaceCallFunc hands off telephony placement; same contract.
type PlaceCallFunc func(ctx context.Context, number string) error

// Dispatcher sends the emergency alert to the user's contacts and records an
// escalation audit row. Best-effort: a contact failing does not stop the rest.
type Dispatcher struct {
	db       db.Querier
	contacts *contact.Service
	sendSMS  SendSMSFunc
}

func NewDispatcher(querier db.Querier, contacts *contact.Service, send SendSMSFunc) *Dispatcher {
	if send == nil {
		send = logSMS
	}
	return &Dispatcher{db: querier, contacts: contacts, sendSMS: send}
}

func (d *Dispatcher) SendEmergencyAlert(ctx context.Context, userID string, lat, lng float64, address string) error {
	contacts, err := d.contacts.ListContacts(ctx, userID)
	if err != nil {
		return err
	}
	if len(contacts) == 0 {
		log.Printf("emergency alert for %s: no contacts configured", userID)
	}

	if d.db != nil {
		_, err := d.db.Exec(ctx, `
			INSERT INTO escalations (id, user_id, lat, lng, address)
			VALUES ($1,$2,$3,$4,$5)
		`, uuid.NewString(), userID, lat, lng, address)
		if err != nil {
			// The audit row is secondary; the alert still goes out.
			log.Printf("escalation audit insert failed: %v", err)
		}
	}

	msg := emergencyMessage(lat, lng, address)
	var errs []error
	for _, c := range contacts {
		if err := d.sendSMS(ctx, c.Phone, msg); err != nil {
			log.Printf("emergency SMS to %s failed: %v", c.Phone, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func emergencyMessage(lat, lng float64, address string) string {
	location := "Location unavailable"
	if lat != 0 || lng != 0 {
		location = fmt.Sprintf("https://maps.google.com/?q=%f,%f", lat, lng)
	}
	if address != "" {
		location += " (" + address + ")"
	}
	return "EMERGENCY! Need help immediately. Location: " + location
}

func logSMS(_ context.Context, phone, message string) error {
	log.Printf("sms to %s: %s", phone, message)
	return nil
}

// Caller places the emergency call through an injectable telephony func.
type Caller struct {
	place PlaceCallFunc
}

func NewCaller(place PlaceCallFunc) *Caller {
	if place == nil {
		place = logCall
	}
	return &Caller{place: place}
}

func (c *Caller) PlaceCall(ctx context.Context, number string) error {
	return c.place(ctx, number)
}

func logCall(_ context.Context, number string) error {
	log.Printf("placing emergency call to %s", number)
	return nil
}
