package models

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	opLabel = "op"
)

var (
	treeCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tree_count",
		Help: "The number of live trees.",
	})

	treeCountTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tree_count_total",
		Help: "The total number of trees created.",
	})

	treeOpCountTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tree_op_count_total",
		Help: "The total number of structural tree operations.",
	}, []string{opLabel})

	treeWatcherCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tree_watcher_count",
		Help: "The number of connected tree watchers.",
	})
)

func instrumentIncreaseTreeGauge() {
	treeCount.Inc()
}

func instrumentDecreaseTreeGauge() {
	treeCount.Dec()
}

func instrumentCountTree() {
	treeCountTotal.Inc()
}

func instrumentCountTreeOp(op string) {
	treeOpCountTotal.
		With(prometheus.Labels{opLabel: op}).
		Inc()
}

func instrumentIncreaseWatcherGauge() {
	treeWatcherCount.Inc()
}

func instrumentDecreaseWatcherGauge() {
	treeWatcherCount.Dec()
}
