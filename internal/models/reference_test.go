package models

import "testing"

func TestNormalizeATA(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"21-26", "21-26"},
		{"2126", "21-26"},
		{"21.26", "21-26"},
		{"21 26", "21-26"},
		{"21-26-00", "21-26"},
		{"ATA 21-26", "21-26"},
		{"21", ""},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizeATA(c.in); got != c.want {
			t.Errorf("NormalizeATA(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestReferenceKeyTask(t *testing.T) {
	tsm := ReferenceKey{Manual: ManualTSM, Chapter: "21", Section: "26", Subject: "00"}
	if got := tsm.Task(); got != "21-26-00" {
		t.Errorf("Task = %q, want 21-26-00", got)
	}
	if got := tsm.ATA04(); got != "21-26" {
		t.Errorf("ATA04 = %q, want 21-26", got)
	}

	fim := ReferenceKey{Manual: ManualFIM, Chapter: "32", Section: "47", Subject: "00", Item: "810", Code: "813"}
	if got := fim.Task(); got != "32-47-00-810-813" {
		t.Errorf("Task = %q, want 32-47-00-810-813", got)
	}
}
