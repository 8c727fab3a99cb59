package sequence

import "testing"

func TestEntityTypeMeta(t *testing.T) {
	cases := []struct {
		et     EntityType
		prefix string
		name   string
	}{
		{EntityPatient, "PAT", "patient"},
		{EntityVisit, "VIS", "visit"},
		{EntityDoctor, "DOC", "doctor"},
		{EntityBilling, "BIL", "billing"},
		{EntityReport, "REP", "report"},
	}
	for _, tc := range cases {
		if !tc.et.Valid() {
			t.Errorf("%s should be valid", tc.et)
		}
		if tc.et.Prefix() != tc.prefix {
			t.Errorf("%s prefix = %q, want %q", tc.et, tc.et.Prefix(), tc.prefix)
		}
		if tc.et.EntityName() != tc.name {
			t.Errorf("%s name = %q, want %q", tc.et, tc.et.EntityName(), tc.name)
		}
	}

	if EntityType("INVOICE").Valid() {
		t.Error("unregistered entity type should be invalid")
	}
}

func TestFormatCode(t *testing.T) {
	cases := []struct {
		prefix string
		labID  int64
		n      int64
		want   string
	}{
		{"PAT", 1, 1, "PAT1-00001"},
		{"BIL", 42, 137, "BIL42-00137"},
		{"VIS", 7, 99999, "VIS7-99999"},
		// past five digits the number simply grows
		{"VIS", 7, 123456, "VIS7-123456"},
	}
	for _, tc := range cases {
		if got := FormatCode(tc.prefix, tc.labID, tc.n); got != tc.want {
			t.Errorf("FormatCode(%s,%d,%d) = %q, want %q", tc.prefix, tc.labID, tc.n, got, tc.want)
		}
	}
}

func TestFormatCode_LabDisambiguates(t *testing.T) {
	// Two labs at the same counter value must never produce the same code.
	a := FormatCode("PAT", 1, 5)
	b := FormatCode("PAT", 11, 5)
	if a == b {
		t.Errorf("codes collide across labs: %q", a)
	}
}
