// Package channel defines the channel-kind enumeration, the adapter contract,
// and the registry that maps a kind to its transport-specific send behavior.
package channel

import (
	"fmt"
	"strings"
)

// Kind identifies an external messaging surface.
type Kind string

// Closed set of channel kinds. Kinds without a registered adapter (lead,
// messenger) are native: replies are stored only, nothing leaves the system.
const (
	KindLead              Kind = "lead"
	KindMessenger         Kind = "messenger"
	KindFacebookPost      Kind = "facebook-post"
	KindFacebookMessenger Kind = "facebook-messenger"
	KindChatfuel          Kind = "chatfuel"
	KindWhatsApp          Kind = "whatsapp"
	KindViber             Kind = "viber"
	KindTelegram          Kind = "telegram"
	KindLine              Kind = "line"
	KindTwilio            Kind = "twilio"
	KindTelnyx            Kind = "telnyx"
)

func (k Kind) String() string {
	return string(k)
}

var allKinds = map[Kind]struct{}{
	KindLead:              {},
	KindMessenger:         {},
	KindFacebookPost:      {},
	KindFacebookMessenger: {},
	KindChatfuel:          {},
	KindWhatsApp:          {},
	KindViber:             {},
	KindTelegram:          {},
	KindLine:              {},
	KindTwilio:            {},
	KindTelnyx:            {},
}

// ParseKind validates and normalizes a raw string into a known Kind.
func ParseKind(raw string) (Kind, error) {
	normalized := normalizeKind(raw)
	if normalized == "" {
		return "", fmt.Errorf("channel kind is required")
	}
	if _, ok := allKinds[normalized]; !ok {
		return "", fmt.Errorf("unknown channel kind: %s", raw)
	}
	return normalized, nil
}

func normalizeKind(raw string) Kind {
	normalized := strings.TrimSpace(strings.ToLower(raw))
	if normalized == "" {
		return ""
	}
	return Kind(normalized)
}
