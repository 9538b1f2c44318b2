package contact

import "testing"

func TestWhatsAppLink(t *testing.T) {
	t.Parallel()

	link, ok := WhatsAppLink("6281234567890")
	if !ok {
		t.Fatal("expected valid Indonesian mobile number")
	}
	if link != "https://wa.me/6281234567890" {
		t.Fatalf("unexpected link %q", link)
	}

	for _, phone := range []string{"", "62123", "not-a-number"} {
		if _, ok := WhatsAppLink(phone); ok {
			t.Fatalf("WhatsAppLink(%q) should be rejected", phone)
		}
	}
}
