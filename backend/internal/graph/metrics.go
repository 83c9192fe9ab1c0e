package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultAvailable   = "available"
	resultUnavailable = "unavailable"
)

var traversalNeighbours = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "podgraph_traversal_neighbours_total",
		Help: "Neighbours resolved during traversal, by result",
	},
	[]string{"result"},
)
