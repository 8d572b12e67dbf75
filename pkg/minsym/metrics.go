package minsym

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	InstalledSymbols *prometheus.CounterVec
	CompactedSymbols *prometheus.CounterVec
	DemangledSymbols *prometheus.CounterVec
	TableSize        *prometheus.GaugeVec
	Lookups          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		InstalledSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minsyms_installed_symbols_total",
			Help: "Total number of symbols staged and installed into an image table",
		}, []string{"image"}),
		CompactedSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minsyms_compacted_symbols_total",
			Help: "Total number of duplicate symbols removed while installing",
		}, []string{"image"}),
		DemangledSymbols: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minsyms_demangled_symbols_total",
			Help: "Total number of installed symbols with a demangled name",
		}, []string{"image"}),
		TableSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "minsyms_table_symbols",
			Help: "Number of symbols in the installed table of an image",
		}, []string{"image"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minsyms_lookups_total",
			Help: "Total number of symbol lookups by lookup type and result",
		}, []string{"type", "result"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.InstalledSymbols,
			m.CompactedSymbols,
			m.DemangledSymbols,
			m.TableSize,
			m.Lookups,
		)
	}

	return m
}

func (m *Metrics) lookup(typ string, found bool) {
	if m == nil {
		return
	}
	result := "miss"
	if found {
		result = "hit"
	}
	m.Lookups.WithLabelValues(typ, result).Inc()
}
