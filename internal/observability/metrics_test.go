package observability

import (
	"bytes"
	"strings"
	"testing"
)

func TestOperationMetricsAppearInExposition(t *testing.T) {
	m := newMetrics()
	m.ObserveOperation("withdraw", true)
	m.ObserveOperation("withdraw", true)
	m.ObserveOperation("withdraw", false)
	m.AddSettled("withdraw", 750)
	m.AddSettled("withdraw", -5) // negative amounts never settle
	m.SetAgreementCount(3)

	var buf bytes.Buffer
	if err := m.WritePrometheus(&buf); err != nil {
		t.Fatalf("write prometheus: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		`sv_settlement_operations_total{operation="withdraw",outcome="ok"} 2.000000`,
		`sv_settlement_operations_total{operation="withdraw",outcome="error"} 1.000000`,
		`sv_settled_amount_total{operation="withdraw"} 750.000000`,
		"sv_agreements_total 3.000000",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("exposition missing %q:\n%s", want, out)
		}
	}
}

func TestNilMetricsMethodsAreNoOps(t *testing.T) {
	var m *Metrics
	m.ObserveOperation("withdraw", true)
	m.AddSettled("withdraw", 100)
	m.SetAgreementCount(1)
	if err := m.WritePrometheus(&bytes.Buffer{}); err != nil {
		t.Fatalf("nil metrics write: %v", err)
	}
}
