package enums

// ListingAuditType labels entries in a listing's audit trail.
type ListingAuditType string

const (
	ListingAuditCreated         ListingAuditType = "CREATED"
	ListingAuditSubmitted       ListingAuditType = "SUBMITTED"
	ListingAuditApproved        ListingAuditType = "APPROVED"
	ListingAuditRejected        ListingAuditType = "REJECTED"
	ListingAuditHidden          ListingAuditType = "HIDDEN"
	ListingAuditUnhidden        ListingAuditType = "UNHIDDEN"
	ListingAuditExpiringSoon    ListingAuditType = "EXPIRING_SOON"
	ListingAuditExpired         ListingAuditType = "EXPIRED"
	ListingAuditReportThreshold ListingAuditType = "REPORT_THRESHOLD"
	ListingAuditPriceChanged    ListingAuditType = "PRICE_CHANGED"
)
