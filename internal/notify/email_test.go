package notify

import "testing"

func TestEndpointAutoDetect(t *testing.T) {
	tests := []struct {
		sender string
		host   string
		port   int
		ssl    bool
	}{
		{"user@qq.com", "smtp.qq.com", 465, true},
		{"user@gmail.com", "smtp.gmail.com", 587, false},
		{"user@hotmail.com", "smtp-mail.outlook.com", 587, false},
		{"user@unknown-corp.cn", "smtp.unknown-corp.cn", 465, true},
	}
	for _, tt := range tests {
		e := NewEmailer(Config{Sender: tt.sender})
		got, err := e.endpoint()
		if err != nil {
			t.Fatalf("endpoint(%s): %v", tt.sender, err)
		}
		if got.host != tt.host || got.port != tt.port || got.ssl != tt.ssl {
			t.Errorf("endpoint(%s) = %+v", tt.sender, got)
		}
	}
}

func TestEndpointExplicitConfigWins(t *testing.T) {
	e := NewEmailer(Config{Sender: "user@qq.com", Host: "mail.internal", Port: 2525})
	got, err := e.endpoint()
	if err != nil {
		t.Fatal(err)
	}
	if got.host != "mail.internal" || got.port != 2525 || got.ssl {
		t.Errorf("endpoint = %+v", got)
	}
}

func TestEndpointInvalidSender(t *testing.T) {
	e := NewEmailer(Config{Sender: "not-an-address"})
	if _, err := e.endpoint(); err == nil {
		t.Fatal("expected error for malformed sender")
	}
}

func TestConfigured(t *testing.T) {
	full := Config{Enabled: true, Sender: "a@qq.com", Password: "p", Recipients: []string{"b@qq.com"}}
	if !NewEmailer(full).Configured() {
		t.Error("complete config reported unconfigured")
	}

	for name, cfg := range map[string]Config{
		"disabled":      {Sender: "a@qq.com", Password: "p", Recipients: []string{"b@qq.com"}},
		"no password":   {Enabled: true, Sender: "a@qq.com", Recipients: []string{"b@qq.com"}},
		"no recipients": {Enabled: true, Sender: "a@qq.com", Password: "p"},
	} {
		if NewEmailer(cfg).Configured() {
			t.Errorf("%s config reported configured", name)
		}
	}
}

func TestSendReportUnconfiguredNoOp(t *testing.T) {
	e := NewEmailer(Config{})
	if err := e.SendReport("2026-08-29", "# report"); err != nil {
		t.Fatalf("unconfigured send should be a no-op, got %v", err)
	}
}
