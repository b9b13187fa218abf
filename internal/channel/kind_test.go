package channel

import "testing"

func TestParseKind(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		want    Kind
		wantErr bool
	}{
		{name: "exact", in: "facebook-post", want: KindFacebookPost},
		{name: "case and space", in: "  WhatsApp ", want: KindWhatsApp},
		{name: "native", in: "messenger", want: KindMessenger},
		{name: "empty", in: "", wantErr: true},
		{name: "unknown", in: "carrier-pigeon", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseKind(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("ParseKind(%q) expected error", tc.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseKind(%q) returned error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseKind(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
