// Package module defines the minimal contract service modules expose to cmd wiring
package module

// Module is a wired service exposing its ports
type Module interface {
	Name() string
	Ports() any
}
