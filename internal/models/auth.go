package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the available roles for the RBAC system.
type UserRole string

const (
	RoleSuperAdmin  UserRole = "SUPERADMIN"
	RoleAdmin       UserRole = "ADMIN"
	RoleTeacher     UserRole = "TEACHER"
	RoleInvigilator UserRole = "INVIGILATOR"
)

// Role sets used by the route table.
var (
	AdminRoles        = []UserRole{RoleSuperAdmin, RoleAdmin}
	HelperEditorRoles = []UserRole{RoleSuperAdmin, RoleAdmin, RoleTeacher}
	StaffRoles        = []UserRole{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleInvigilator}
)

// JWTClaims represents the payload of access tokens minted by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
