package api

import (
	"github.com/JaimeStill/verity/internal/detections"
	"github.com/JaimeStill/verity/internal/reliability"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Detections  detections.System
	Reliability *reliability.Handler
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	return &Domain{
		Detections: detections.New(
			runtime.Database.Connection(),
			runtime.Engine,
			runtime.Reliability,
			runtime.Storage,
			runtime.Logger,
			runtime.Pagination,
		),
		Reliability: reliability.NewHandler(runtime.Reliability, runtime.Logger),
	}
}
