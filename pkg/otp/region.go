package otp

import (
	"strings"
	"time"
)

type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

var southIndianStates = map[string]bool{
	"tamil nadu":     true,
	"kerala":         true,
	"karnataka":      true,
	"andhra pradesh": true,
	"telangana":      true,
}

var ist = time.FixedZone("IST", 5*60*60+30*60)

func IsSouthIndia(state string) bool {
	return southIndianStates[strings.ToLower(strings.TrimSpace(state))]
}

// ChannelFor picks how a passcode is delivered: email in the southern
// states, SMS everywhere else
func ChannelFor(state string) Channel {
	if IsSouthIndia(state) {
		return ChannelEmail
	}
	return ChannelSMS
}

// ThemeFor returns light between 10:00 and 12:00 IST for southern states
func ThemeFor(state string, now time.Time) Theme {
	if !IsSouthIndia(state) {
		return ThemeDark
	}
	hour := now.In(ist).Hour()
	if hour >= 10 && hour < 12 {
		return ThemeLight
	}
	return ThemeDark
}
