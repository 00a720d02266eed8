package events

import "testing"

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name  string
		spec  string
		topic string
		want  bool
	}{
		{"empty filter matches all", "", "zigbee2mqtt/lamp", true},
		{"star matches all", "*", "anything/at/all", true},
		{"exact match", "zigbee2mqtt/lamp", "zigbee2mqtt/lamp", true},
		{"exact mismatch", "zigbee2mqtt/lamp", "zigbee2mqtt/plug", false},
		{"prefix match", "zigbee2mqtt/*", "zigbee2mqtt/lamp", true},
		{"prefix match bare root", "zigbee2mqtt/*", "zigbee2mqtt/", true},
		{"prefix mismatch", "zigbee2mqtt/*", "automation/run", false},
		{"multiple patterns first", "zigbee2mqtt/*,automation/*", "zigbee2mqtt/lamp", true},
		{"multiple patterns second", "zigbee2mqtt/*,automation/*", "automation/run", true},
		{"multiple patterns neither", "zigbee2mqtt/*,automation/*", "frigate/events", false},
		{"whitespace around patterns", " zigbee2mqtt/* , automation/run ", "automation/run", true},
		{"trailing comma ignored", "zigbee2mqtt/*,", "zigbee2mqtt/lamp", true},
		{"star amongst patterns", "nomatch,*", "anything", true},
		{"prefix does not match shorter topic", "zigbee2mqtt/lamp*", "zigbee2mqtt/lam", false},
		{"exact pattern is not a prefix", "zigbee2mqtt", "zigbee2mqtt/lamp", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFilter(tt.spec)
			if got := f.Matches(tt.topic); got != tt.want {
				t.Errorf("NewFilter(%q).Matches(%q) = %v, want %v", tt.spec, tt.topic, got, tt.want)
			}
		})
	}
}

func TestFilter_String(t *testing.T) {
	if got := NewFilter("").String(); got != "*" {
		t.Errorf("empty filter String() = %q, want %q", got, "*")
	}
	if got := NewFilter("a/*, b").String(); got != "a/*,b" {
		t.Errorf("String() = %q, want %q", got, "a/*,b")
	}
}
