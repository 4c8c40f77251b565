package account

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account kinds. The role decides which profile
// variant an account owns.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RoleServiceman Role = "SERVICEMAN"
	RoleVendor     Role = "VENDOR"
	RoleAdmin      Role = "ADMIN"
)

// ParseRole accepts the wire spelling of a role, case-insensitively. An empty
// string yields RoleCustomer.
func ParseRole(s string) (Role, error) {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case "", RoleCustomer:
		return RoleCustomer, nil
	case RoleServiceman:
		return RoleServiceman, nil
	case RoleVendor:
		return RoleVendor, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// SelfRegistrable reports whether a caller may pick this role at signup.
func (r Role) SelfRegistrable() bool {
	return r == RoleCustomer || r == RoleServiceman || r == RoleVendor
}

func (r Role) String() string { return string(r) }

// Account is a registered user of the marketplace.
type Account struct {
	ID           string
	Name         string
	Email        string
	Phone        string
	Role         Role
	Verified     bool
	Active       bool
	PasswordHash []byte
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword is false for accounts created through the OTP-only flows.
func (a Account) HasPassword() bool {
	return len(a.PasswordHash) > 0
}

// NewAccount carries the caller supplied fields for account creation.
type NewAccount struct {
	Name     string
	Email    string
	Phone    string
	Role     Role
	Verified bool
}

// Profile is the role-specific extension owned by an account. The set of
// implementations is closed: CustomerProfile, ServicemanProfile and
// VendorProfile.
type Profile interface {
	AccountID() string
	Role() Role
	isProfile()
}

// CustomerProfile holds customer defaults used when booking.
type CustomerProfile struct {
	UserID         string
	DefaultAddress *string
	DefaultLat     *float64
	DefaultLong    *float64
	ProfilePicURL  *string
}

// ServicemanProfile holds availability and qualification data.
type ServicemanProfile struct {
	UserID          string
	IsOnline        bool
	CurrentLat      *float64
	CurrentLong     *float64
	ExperienceYears int
	KYCDocsURL      *string
	AverageRating   float64
}

// VendorProfile holds store details for material suppliers.
type VendorProfile struct {
	UserID             string
	BusinessName       string
	GSTNumber          *string
	StoreAddress       *string
	StoreLat           *float64
	StoreLong          *float64
	OpeningHours       *string
	BankAccountDetails *string
}

func (p CustomerProfile) AccountID() string   { return p.UserID }
func (p ServicemanProfile) AccountID() string { return p.UserID }
func (p VendorProfile) AccountID() string     { return p.UserID }

func (CustomerProfile) Role() Role   { return RoleCustomer }
func (ServicemanProfile) Role() Role { return RoleServiceman }
func (VendorProfile) Role() Role     { return RoleVendor }

func (CustomerProfile) isProfile()   {}
func (ServicemanProfile) isProfile() {}
func (VendorProfile) isProfile()     {}

// NewProfile returns the empty profile variant for role. Admins own no
// profile, so ok is false for RoleAdmin.
func NewProfile(role Role, accountID string) (profile Profile, ok bool) {
	switch role {
	case RoleCustomer:
		return CustomerProfile{UserID: accountID}, true
	case RoleServiceman:
		return ServicemanProfile{UserID: accountID}, true
	case RoleVendor:
		return VendorProfile{UserID: accountID}, true
	default:
		return nil, false
	}
}
