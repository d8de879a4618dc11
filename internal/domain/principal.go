package domain

import "github.com/google/uuid"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// Principal is the authenticated identity behind a request. VendorID is the
// linked vendor-profile id and is set only for vendor principals.
type Principal struct {
	ID       uuid.UUID
	Role     Role
	VendorID uuid.UUID
}

// CanRead reports whether p may see the booking. Admins always can, vendors
// only their own bookings, customers only bookings they created.
func CanRead(p Principal, b Booking) bool {
	switch p.Role {
	case RoleAdmin:
		return true
	case RoleVendor:
		return p.VendorID != uuid.Nil && p.VendorID == b.VendorID
	case RoleCustomer:
		return p.ID == b.UserID
	}
	return false
}

// CanWrite mirrors CanRead: both sides of a booking may mutate it.
func CanWrite(p Principal, b Booking) bool {
	return CanRead(p, b)
}

// CanDelete is stricter: only the owning customer or an admin may delete.
func CanDelete(p Principal, b Booking) bool {
	return p.Role == RoleAdmin || p.ID == b.UserID
}
