package session

import "testing"

func FuzzSessionDecode(f *testing.F) {
	encoded, err := Encode(&Session{
		SubjectID: "traveler-1",
		CreatedAt: 1700000000,
		ExpiresAt: 1700003600,
	})
	if err == nil {
		f.Add(encoded)
		f.Add(encoded[:5])
	}

	f.Add([]byte{})
	f.Add([]byte{0})
	f.Add([]byte{1})
	f.Add([]byte{1, 255, 255})

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := Decode(data)
		if err != nil {
			return
		}
		if _, err := Encode(s); err != nil {
			t.Fatalf("decoded session failed to re-encode: %v", err)
		}
	})
}
