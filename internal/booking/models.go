package booking

import "time"

const (
	StatusScheduled = "scheduled"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Provider is the specialist being booked.
type Provider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// ServiceOffering is a bookable service. An empty ProviderID marks a global offering.
type ServiceOffering struct {
	ID         string  `json:"id"`
	ProviderID string  `json:"provider_id,omitempty"`
	Name       string  `json:"name"`
	Category   string  `json:"category,omitempty"`
	Duration   int     `json:"duration"`
	Price      float64 `json:"price"`
}

// OfferedBy reports whether the service can be booked with providerID.
func (s ServiceOffering) OfferedBy(providerID string) bool {
	return s.ProviderID == "" || s.ProviderID == providerID
}

// Identity is the authenticated client making a booking.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role,omitempty"`
}

// RoleAdmin may manage every provider's schedule and calendar link.
const RoleAdmin = "admin"

// CanManage reports whether the identity may edit providerID's settings.
func (i Identity) CanManage(providerID string) bool {
	if i.Role == RoleAdmin {
		return true
	}
	return i.UID != "" && i.UID == providerID
}

type Appointment struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	SpecialistID   string    `json:"specialist_id"`
	SpecialistName string    `json:"specialist_name"`
	ServiceID      string    `json:"service_id"`
	ServiceName    string    `json:"service_name"`
	Date           string    `json:"date"`
	StartTime      string    `json:"start_time"`
	EndTime        string    `json:"end_time"`
	StartAt        time.Time `json:"start_at"`
	EndAt          time.Time `json:"end_at"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes,omitempty"`
	Price          float64   `json:"price"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidTransition reports whether an appointment may move from one status to another.
// Only scheduled appointments change status; nothing is ever deleted.
func ValidTransition(from, to string) bool {
	return from == StatusScheduled && (to == StatusCompleted || to == StatusCancelled)
}
