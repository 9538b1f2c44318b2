package contact

import (
	"github.com/nyaruka/phonenumbers"
)

const defaultRegion = "ID"

// WhatsAppLink returns a wa.me link for a canonical phone when the number is a
// valid Indonesian number.
func WhatsAppLink(phone string) (string, bool) {
	if phone == "" {
		return "", false
	}
	num, err := phonenumbers.Parse("+"+phone, defaultRegion)
	if err != nil {
		return "", false
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	e164 := phonenumbers.Format(num, phonenumbers.E164)
	return "https://wa.me/" + e164[1:], true
}
