// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package authority

import "testing"

func TestParseTier(t *testing.T) {
	tests := []struct {
		input    string
		expected Tier
		wantErr  bool
		paid     bool
	}{
		{input: "", expected: TierFree},
		{input: "free", expected: TierFree},
		{input: "monthly", expected: TierMonthly, paid: true},
		{input: "yearly", expected: TierYearly, paid: true},
		{input: "lifetime", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTier(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTier(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.expected {
				t.Errorf("ParseTier(%q) = %s, expected %s", tt.input, got, tt.expected)
			}
			if got.IsPaid() != tt.paid {
				t.Errorf("IsPaid() = %v, expected %v", got.IsPaid(), tt.paid)
			}
		})
	}
}

func TestProfileUpdate_IsEmpty(t *testing.T) {
	if !(ProfileUpdate{}).IsEmpty() {
		t.Error("zero update should be empty")
	}
	if (ProfileUpdate{ActiveTheme: String("theme_gold")}).IsEmpty() {
		t.Error("update with theme should not be empty")
	}
}
