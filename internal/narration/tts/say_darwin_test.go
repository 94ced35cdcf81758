//go:build darwin

package tts

import "testing"

func TestParseSayVoices(t *testing.T) {
	output := "Luciana             pt_BR    # Olá, meu nome é Luciana.\nBad News            en_US    # The light you see\n"

	voices := parseSayVoices(output)
	if len(voices) != 2 {
		t.Fatalf("got %d voices, want 2", len(voices))
	}
	if voices[0].Name != "Luciana" || voices[0].LanguageCode != "pt_BR" {
		t.Errorf("voices[0] = %+v", voices[0])
	}
	if voices[1].Name != "Bad News" {
		t.Errorf("voices[1].Name = %q, want Bad News", voices[1].Name)
	}
}
