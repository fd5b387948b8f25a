package engine

import "testing"

func TestParseChannelOrder(t *testing.T) {
	tests := []struct {
		in      string
		want    ChannelOrder
		wantErr bool
	}{
		{"", OrderAuto, false},
		{"auto", OrderAuto, false},
		{"Primary-First", OrderPrimaryFirst, false},
		{"lookup-first", OrderLookupFirst, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParseChannelOrder(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseChannelOrder(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestChannelOrderResolve(t *testing.T) {
	tests := []struct {
		order  ChannelOrder
		appEnv string
		want   ChannelOrder
	}{
		{OrderAuto, "production", OrderLookupFirst},
		{OrderAuto, "Production", OrderLookupFirst},
		{OrderAuto, "development", OrderPrimaryFirst},
		{OrderAuto, "", OrderPrimaryFirst},
		{OrderPrimaryFirst, "production", OrderPrimaryFirst},
		{OrderLookupFirst, "", OrderLookupFirst},
	}
	for _, tt := range tests {
		if got := tt.order.Resolve(tt.appEnv); got != tt.want {
			t.Errorf("%q.Resolve(%q) = %q, want %q", tt.order, tt.appEnv, got, tt.want)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	ok := Config{LLMModel: "gemini-2.5-flash", LookupURL: DefaultLookupURL}
	if err := ok.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	if err := (Config{}).Validate(); err == nil {
		t.Error("expected error for missing model")
	}
	if err := (Config{LLMModel: "m", LookupURL: "https://example.com/t"}).Validate(); err == nil {
		t.Errorf("expected error for lookup URL without %%s")
	}
	if err := (Config{LLMModel: "m", LLMProvider: "bard"}).Validate(); err == nil {
		t.Error("expected error for unknown provider")
	}
}
