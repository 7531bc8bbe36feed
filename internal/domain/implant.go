package domain

import (
	"net"
	"time"
)

// Implant is a managed remote agent. ImplantID is the identifier the agent
// asserts about itself at check-in and is the key operators use; ID is the
// storage key and never leaves the server.
//
// ReadOnlyACGs and OperatorACGs gate visibility and control. An empty list
// means "no restriction of that kind" for authenticated users, with one
// exception: an implant with read-only groups but no operator groups is
// editable by admins only (see security.Engine).
type Implant struct {
	ID                    string
	ImplantID             string
	IP                    string
	OS                    string
	BeaconIntervalSeconds int64
	LastCheckinAt         time.Time
	IsActive              bool
	ReadOnlyACGs          []string
	OperatorACGs          []string
}

// BeaconRequest is the payload an implant submits at check-in.
type BeaconRequest struct {
	ImplantID             string `json:"id"`
	IP                    string `json:"ip"`
	OS                    string `json:"os"`
	BeaconIntervalSeconds int64  `json:"beaconIntervalSeconds"`
}

// Validate checks the beacon payload: the self-asserted ID must be present,
// the interval positive, and the IP (when provided) parseable.
func (r *BeaconRequest) Validate() error {
	if r.ImplantID == "" {
		return ErrValidation("beacon id is required")
	}
	if r.BeaconIntervalSeconds <= 0 {
		return ErrValidation("beacon interval must be positive")
	}
	if r.IP != "" && net.ParseIP(r.IP) == nil {
		return ErrValidation("beacon ip %q is not a valid address", r.IP)
	}
	return nil
}

// SetImplantACGsRequest replaces an implant's ACG lists.
type SetImplantACGsRequest struct {
	ImplantID    string
	ReadOnlyACGs []string
	OperatorACGs []string
}

// Validate checks that the request names an implant.
func (r *SetImplantACGsRequest) Validate() error {
	if r.ImplantID == "" {
		return ErrValidation("implant id is required")
	}
	return nil
}
