package phoneauth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func plantPending(t *testing.T, f *fixture, record Pending) {
	t.Helper()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = *f.now
	}
	if record.ExpiresAt.IsZero() {
		record.ExpiresAt = f.now.Add(5 * time.Minute)
	}
	require.NoError(t, f.svc.save(context.Background(), record))
}

func loadPending(t *testing.T, f *fixture, phone string) Pending {
	t.Helper()
	record, err := f.svc.load(context.Background(), phone)
	require.NoError(t, err)
	return record
}

func TestParseWebhookJSON(t *testing.T) {
	event := ParseWebhook([]byte(`{"phone":"79001112233","callback_number":"+78121234567","call_id":"c-1","status":"ringing","extra":42}`), "application/json")
	require.Equal(t, "79001112233", event.Phone)
	require.Equal(t, "+78121234567", event.Number)
	require.Equal(t, "c-1", event.CorrelationKey)
	require.Equal(t, "ringing", event.Status)
}

func TestParseWebhookForm(t *testing.T) {
	event := ParseWebhook([]byte(`caller=79001112233&did=%2B78121234567&request_id=c-2&call_status=success`), "application/x-www-form-urlencoded")
	require.Equal(t, "79001112233", event.Phone)
	require.Equal(t, "+78121234567", event.Number)
	require.Equal(t, "c-2", event.CorrelationKey)
	require.Equal(t, "success", event.Status)
}

func TestParseWebhookQueryShapedBody(t *testing.T) {
	event := ParseWebhook([]byte(`phone=79001112233&status=1`), "")
	require.Equal(t, "79001112233", event.Phone)
	require.Equal(t, "1", event.Status)
	require.True(t, event.success())
}

func TestParseWebhookGarbage(t *testing.T) {
	require.Equal(t, Event{}, ParseWebhook([]byte(`{"broken`), "application/json"))
	require.Equal(t, Event{}, ParseWebhook(nil, ""))
}

func TestIngestAssignsCallbackNumberOnce(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233"})
	plantPending(t, f, Pending{UserPhone: "79004445566"})

	matched, err := f.svc.IngestWebhook(ctx, Event{Number: "+78121111111", CorrelationKey: "c-1"})
	require.NoError(t, err)
	require.True(t, matched)

	matched, err = f.svc.IngestWebhook(ctx, Event{Number: "+78122222222", CorrelationKey: "c-2"})
	require.NoError(t, err)
	require.True(t, matched)

	// Records are scanned in key order, so assignment is deterministic and
	// the second webhook never corrupts the first assignment.
	first := loadPending(t, f, "79001112233")
	second := loadPending(t, f, "79004445566")
	require.Equal(t, "+78121111111", first.DisplayPhone)
	require.Equal(t, "c-1", first.CorrelationKey)
	require.Equal(t, "+78122222222", second.DisplayPhone)
	require.Equal(t, "c-2", second.CorrelationKey)
	require.False(t, first.Verified)
	require.False(t, second.Verified)
}

func TestIngestConfirmsByCorrelationKey(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233", DisplayPhone: "+78121111111", CorrelationKey: "c-1"})
	plantPending(t, f, Pending{UserPhone: "79004445566", DisplayPhone: "+78122222222", CorrelationKey: "c-2"})

	matched, err := f.svc.IngestWebhook(ctx, Event{CorrelationKey: "c-2"})
	require.NoError(t, err)
	require.True(t, matched)

	require.False(t, loadPending(t, f, "79001112233").Verified)
	require.True(t, loadPending(t, f, "79004445566").Verified)
}

func TestIngestConfirmsBySuccessStatus(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233", DisplayPhone: "+78121111111", CorrelationKey: "c-1"})

	matched, err := f.svc.IngestWebhook(ctx, Event{Status: "SUCCESS"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, loadPending(t, f, "79001112233").Verified)
}

func TestIngestConfirmsByUserPhone(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233", DisplayPhone: "+78121111111", CorrelationKey: "c-1"})

	matched, err := f.svc.IngestWebhook(ctx, Event{Phone: "79001112233", Status: "ringing"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, loadPending(t, f, "79001112233").Verified)
}

func TestIngestConfirmsByFormattedUserPhone(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233", DisplayPhone: "+78121111111", CorrelationKey: "c-1"})

	// Providers report the caller in their own formatting.
	matched, err := f.svc.IngestWebhook(ctx, Event{Phone: "+7 (900) 111-22-33", Status: "ringing"})
	require.NoError(t, err)
	require.True(t, matched)
	require.True(t, loadPending(t, f, "79001112233").Verified)
}

func TestIngestNeverConfirmsUnassignedRecord(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233"})

	matched, err := f.svc.IngestWebhook(ctx, Event{Status: "success"})
	require.NoError(t, err)
	require.False(t, matched)
	require.False(t, loadPending(t, f, "79001112233").Verified)
}

func TestIngestCommitsExactlyOneRecord(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{UserPhone: "79001112233", DisplayPhone: "+78121111111", CorrelationKey: "c-1"})
	plantPending(t, f, Pending{UserPhone: "79004445566", DisplayPhone: "+78122222222", CorrelationKey: "c-2"})

	// A bare success status could apply to either; only the first in key
	// order is committed.
	matched, err := f.svc.IngestWebhook(ctx, Event{Status: "success"})
	require.NoError(t, err)
	require.True(t, matched)

	verified := 0
	for _, phone := range []string{"79001112233", "79004445566"} {
		if loadPending(t, f, phone).Verified {
			verified++
		}
	}
	require.Equal(t, 1, verified)
}

func TestIngestNoMatchIsNotAnError(t *testing.T) {
	f := newFixture(t, Options{})

	matched, err := f.svc.IngestWebhook(context.Background(), Event{Phone: "70000000000", Status: "success"})
	require.NoError(t, err)
	require.False(t, matched)
}

func TestIngestSkipsExpiredRecords(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	plantPending(t, f, Pending{
		UserPhone:      "79001112233",
		DisplayPhone:   "+78121111111",
		CorrelationKey: "c-1",
		CreatedAt:      f.now.Add(-10 * time.Minute),
		ExpiresAt:      f.now.Add(-5 * time.Minute),
	})

	matched, err := f.svc.IngestWebhook(ctx, Event{CorrelationKey: "c-1"})
	require.NoError(t, err)
	require.False(t, matched)
}
