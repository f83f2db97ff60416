package models

import "time"

type ActivityMessage struct {
	AccountID   string            `json:"account_id"`
	ServiceName string            `json:"service_name"`
	Action      string            `json:"action"`
	ContentID   string            `json:"content_id,omitempty"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// Activity action constants
const (
	ActionLogin         = "login"
	ActionLoginDegraded = "login_degraded"
	ActionLogout        = "logout"
	ActionForceLogout   = "force_logout"
	ActionSessionCheck  = "session_check"
	ActionContentAccess = "content_access"
	ActionContentDenied = "content_denied"
)

// Service name constants
const (
	ServiceSessionIssuer   = "access.session.issuer"
	ServiceSessionRevoke   = "access.session.revocation"
	ServiceContentDelivery = "access.content.delivery"
)
