package service

import "formbridge/internal/model"

// Access rules are pure functions evaluated per request, never cached.
// A nil claims value means the request is anonymous.

// CanReadForm reports whether requester may read the form: published
// forms and anonymous-access forms are open to everyone, everything
// else is creator-or-admin.
func CanReadForm(form *model.Form, requester *model.UserClaims) bool {
	if form.Status == model.FormPublished {
		return true
	}
	if form.Settings.AllowAnonymous {
		return true
	}
	return CanManageForm(form, requester)
}

// CanManageForm reports whether requester may write, delete or publish
// the form, and whether they may read, delete or export its responses.
func CanManageForm(form *model.Form, requester *model.UserClaims) bool {
	if requester == nil {
		return false
	}
	return requester.UserID == form.Creator || requester.Role == model.RoleAdmin
}
