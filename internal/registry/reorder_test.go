package registry

import "testing"

func TestRemapAfterMove(t *testing.T) {
	tests := []struct {
		name     string
		ref      int
		from     int
		to       int
		expected int
	}{
		{
			name:     "moved element tracks to destination",
			ref:      2,
			from:     2,
			to:       5,
			expected: 5,
		},
		{
			name:     "reference inside forward move range shifts down",
			ref:      4,
			from:     2,
			to:       5,
			expected: 3,
		},
		{
			name:     "reference at forward destination shifts down",
			ref:      5,
			from:     2,
			to:       5,
			expected: 4,
		},
		{
			name:     "reference before forward move unchanged",
			ref:      1,
			from:     2,
			to:       5,
			expected: 1,
		},
		{
			name:     "reference after forward destination unchanged",
			ref:      6,
			from:     2,
			to:       5,
			expected: 6,
		},
		{
			name:     "moved element tracks backward",
			ref:      5,
			from:     5,
			to:       1,
			expected: 1,
		},
		{
			name:     "reference inside backward move range shifts up",
			ref:      3,
			from:     5,
			to:       1,
			expected: 4,
		},
		{
			name:     "reference at backward destination shifts up",
			ref:      1,
			from:     5,
			to:       1,
			expected: 2,
		},
		{
			name:     "reference before backward destination unchanged",
			ref:      0,
			from:     5,
			to:       1,
			expected: 0,
		},
		{
			name:     "reference at backward source boundary unchanged",
			ref:      6,
			from:     5,
			to:       1,
			expected: 6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RemapAfterMove(tt.ref, tt.from, tt.to)
			if got != tt.expected {
				t.Errorf("RemapAfterMove(%d, %d, %d) = %d, want %d", tt.ref, tt.from, tt.to, got, tt.expected)
			}
		})
	}
}

func TestRemapAfterRemove(t *testing.T) {
	tests := []struct {
		name     string
		ref      int
		removed  int
		expected int
		ok       bool
	}{
		{
			name:    "reference at removed index is cleared",
			ref:     3,
			removed: 3,
			ok:      false,
		},
		{
			name:     "reference past removed index shifts down",
			ref:      4,
			removed:  3,
			expected: 3,
			ok:       true,
		},
		{
			name:     "reference before removed index unchanged",
			ref:      1,
			removed:  3,
			expected: 1,
			ok:       true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RemapAfterRemove(tt.ref, tt.removed)
			if ok != tt.ok {
				t.Fatalf("RemapAfterRemove(%d, %d) ok = %v, want %v", tt.ref, tt.removed, ok, tt.ok)
			}
			if ok && got != tt.expected {
				t.Errorf("RemapAfterRemove(%d, %d) = %d, want %d", tt.ref, tt.removed, got, tt.expected)
			}
		})
	}
}
