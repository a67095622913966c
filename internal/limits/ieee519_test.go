package limits

import "testing"

func TestVoltageLimit_Boundaries(t *testing.T) {
	tests := []struct {
		voltage float64
		want    float64
	}{
		{1000, 5.0},
		{1000.01, 3.0},
		{69000, 3.0},
		{69000.01, 1.5},
		{161000, 1.5},
		{161000.01, 1.0},
		{400, 5.0},
		{500000, 1.0},
	}
	for _, tt := range tests {
		if got := VoltageLimit(tt.voltage); got != tt.want {
			t.Errorf("VoltageLimit(%v) = %v, want %v", tt.voltage, got, tt.want)
		}
	}
}

func TestVoltageTHDLimit(t *testing.T) {
	tests := []struct {
		voltage float64
		want    float64
	}{
		{690, 8.0},
		{22000, 5.0},
		{115000, 2.5},
		{230000, 1.5},
	}
	for _, tt := range tests {
		if got := VoltageTHDLimit(tt.voltage); got != tt.want {
			t.Errorf("VoltageTHDLimit(%v) = %v, want %v", tt.voltage, got, tt.want)
		}
	}
}

func TestCurrentLimits_RatioBelow20(t *testing.T) {
	// ratio = 1000/100 = 10, first bracket
	orders := []float64{3, 13, 19, 27, 40}
	want := []float64{4.0, 2.0, 1.5, 0.6, 0.3}

	got := CurrentLimits(1000, 100, orders)
	if got == nil {
		t.Fatal("CurrentLimits returned nil for valid inputs")
	}
	if len(got) != len(want) {
		t.Fatalf("CurrentLimits returned %d limits, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("order %v: limit = %v, want %v", orders[i], got[i], want[i])
		}
	}
}

func TestCurrentLimits_ZeroLoadCurrent(t *testing.T) {
	if got := CurrentLimits(1000, 0, []float64{3, 5}); got != nil {
		t.Errorf("CurrentLimits with il=0 = %v, want nil", got)
	}
}

func TestCurrentLimitRowFor_Brackets(t *testing.T) {
	tests := []struct {
		isc, il float64
		wantTDD float64
	}{
		{1000, 100, 5.0},   // ratio 10  -> <20
		{3000, 100, 8.0},   // ratio 30  -> <50
		{9000, 100, 12.0},  // ratio 90  -> <100
		{50000, 100, 15.0}, // ratio 500 -> <1000
		{200000, 100, 20.0},
	}
	for _, tt := range tests {
		row, ok := CurrentLimitRowFor(tt.isc, tt.il)
		if !ok {
			t.Fatalf("CurrentLimitRowFor(%v, %v) returned !ok", tt.isc, tt.il)
		}
		if row.TDD != tt.wantTDD {
			t.Errorf("CurrentLimitRowFor(%v, %v).TDD = %v, want %v", tt.isc, tt.il, row.TDD, tt.wantTDD)
		}
	}
}

func TestCurrentLimitRow_OrderBands(t *testing.T) {
	row, _ := CurrentLimitRowFor(3000, 100) // 7.0/3.5/2.5/1.0/0.5
	tests := []struct {
		order float64
		want  float64
	}{
		{2, 7.0},
		{10, 7.0},
		{11, 3.5},
		{16, 3.5},
		{17, 2.5},
		{22, 2.5},
		{23, 1.0},
		{34, 1.0},
		{35, 0.5},
		{50, 0.5},
	}
	for _, tt := range tests {
		if got := row.ForOrder(tt.order); got != tt.want {
			t.Errorf("ForOrder(%v) = %v, want %v", tt.order, got, tt.want)
		}
	}
}
