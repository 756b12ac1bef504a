package prometrics

import (
	"testing"

	"github.com/Zhima-Mochi/minishop-storefront/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstrumentsRecordOnPrivateRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	inst := Instruments(New(reg, "", ""))

	inst.Counters[observability.MUsecaseRequests].Add(1,
		observability.L("use_case", "cart.add"),
		observability.L("outcome", "success"),
	)
	inst.Counters[observability.MUnitsSold].Add(3)
	inst.Histograms[observability.MUsecaseDuration].Observe(0.2, observability.L("use_case", "cart.add"))

	n, err := testutil.GatherAndCount(reg, "usecase_requests_total", "checkout_units_sold_total", "usecase_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestCounterIsRegisteredOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(reg, "storefront", "")
	a := r.Counter("things_total", "things")
	b := r.Counter("things_total", "things")
	a.Add(1)
	b.Bind().Add(2)

	n, err := testutil.GatherAndCount(reg, "storefront_things_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
