package phoneauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// Event is the flattened view of a gateway webhook. The provider posts two
// shapes — callback-number assignment and call confirmation — and neither
// carries an explicit session id, so every field here is optional.
type Event struct {
	// Phone is the caller's number as the provider saw it.
	Phone string
	// Number is the service-assigned callback number.
	Number string
	// CorrelationKey is the provider's opaque request reference.
	CorrelationKey string
	// Status is the provider's declared call state.
	Status string
}

// statuses the provider uses for a completed confirmation call.
var successStatuses = map[string]bool{
	"success":   true,
	"completed": true,
	"1":         true,
}

func (e Event) success() bool {
	return successStatuses[strings.ToLower(strings.TrimSpace(e.Status))]
}

// ParseWebhook extracts an Event from a webhook body that may be a JSON
// object, a form-urlencoded body or a raw query string. Unknown fields are
// ignored; nothing about the body is an error worth failing the request for.
func ParseWebhook(body []byte, contentType string) Event {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return Event{}
	}

	if strings.Contains(contentType, "json") || strings.HasPrefix(trimmed, "{") {
		var fields map[string]any
		if err := json.Unmarshal([]byte(trimmed), &fields); err == nil {
			return eventFromFields(func(key string) string {
				switch v := fields[key].(type) {
				case string:
					return v
				case float64:
					return strings.TrimSuffix(fmt.Sprintf("%v", v), ".0")
				default:
					return ""
				}
			})
		}
	}

	if values, err := url.ParseQuery(trimmed); err == nil {
		return eventFromFields(values.Get)
	}
	return Event{}
}

// eventFromFields pulls each Event field from the first populated spelling
// the provider is known to use.
func eventFromFields(get func(string) string) Event {
	first := func(keys ...string) string {
		for _, key := range keys {
			if v := strings.TrimSpace(get(key)); v != "" {
				return v
			}
		}
		return ""
	}
	return Event{
		Phone:          first("phone", "caller", "from"),
		Number:         first("callback_number", "did", "number", "to"),
		CorrelationKey: first("correlation_key", "call_id", "request_id"),
		Status:         first("status", "call_status", "state"),
	}
}

// IngestWebhook applies event to at most one live pending record. The
// gateway addresses webhooks only by callback number and correlation key, so
// this is a rule-ordered scan over every live record:
//
//  1. a record still missing its callback number adopts the event's number
//     and correlation key (first webhook);
//  2. a record holding a callback number is confirmed when the event
//     declares success, or its correlation key matches, or its phone equals
//     the record's user phone.
//
// First match wins. No match is a normal outcome: logged and dropped, since
// the gateway offers no retry contract.
func (s *Service) IngestWebhook(ctx context.Context, event Event) (bool, error) {
	records, err := s.livePending(ctx)
	if err != nil {
		return false, err
	}

	// Rule 1: assign the callback number.
	if event.Number != "" && event.CorrelationKey != "" {
		for _, record := range records {
			if record.DisplayPhone != "" {
				continue
			}
			record.DisplayPhone = event.Number
			record.CorrelationKey = event.CorrelationKey
			if err := s.save(ctx, record); err != nil {
				return false, err
			}
			s.logger.Info("webhook assigned callback number",
				"phone", record.UserPhone, "callback_number", event.Number)
			return true, nil
		}
	}

	// Rule 2: confirm the call.
	for _, record := range records {
		if record.DisplayPhone == "" || record.Verified {
			continue
		}
		keyMatch := event.CorrelationKey != "" && event.CorrelationKey == record.CorrelationKey
		phoneMatch := event.Phone != "" && samePhone(event.Phone, record.UserPhone)
		if !event.success() && !keyMatch && !phoneMatch {
			continue
		}
		record.Verified = true
		if err := s.save(ctx, record); err != nil {
			return false, err
		}
		s.logger.Info("webhook confirmed call", "phone", record.UserPhone,
			"by_status", event.success(), "by_key", keyMatch, "by_phone", phoneMatch)
		return true, nil
	}

	s.logger.Info("webhook matched no pending record",
		"phone", event.Phone, "number", event.Number, "status", event.Status)
	return false, nil
}

// samePhone compares a provider-formatted caller number against a stored
// normalized one, falling back to a literal comparison when the provider's
// spelling does not normalize.
func samePhone(raw, normalized string) bool {
	if p, err := NormalizePhone(raw); err == nil {
		return p == normalized
	}
	return raw == normalized
}

// livePending returns every non-expired pending record, ordered by key so
// first-match behavior is deterministic.
func (s *Service) livePending(ctx context.Context) ([]Pending, error) {
	raw, err := s.store.ListPrefix(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list pending records: %w", err)
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	now := s.now()
	records := make([]Pending, 0, len(keys))
	for _, key := range keys {
		var record Pending
		if err := json.Unmarshal([]byte(raw[key]), &record); err != nil {
			s.logger.Warn("skipping undecodable pending record", "key", key, "error", err)
			continue
		}
		if now.After(record.ExpiresAt) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}
