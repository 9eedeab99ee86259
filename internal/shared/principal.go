package shared

// Principal describes the authenticated actor attached to a request. It is
// derived from a verified token and never persisted by this service.
type Principal struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// CanModify reports whether the principal may remove a record authored by authorID.
func (p Principal) CanModify(authorID int64) bool {
	return p.IsAdmin || p.ID == authorID
}
