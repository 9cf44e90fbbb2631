package rbac

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_PatientCanBookAppointments(t *testing.T) {
	matrix := DefaultMatrix()

	decision := matrix.Authorize(RolePatient, ResourceAppointment, ActionCreate)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ScopeOwn, decision.Scope)
}

func TestAuthorize_PatientCannotCreatePrescriptions(t *testing.T) {
	matrix := DefaultMatrix()

	decision := matrix.Authorize(RolePatient, ResourcePrescription, ActionCreate)

	assert.False(t, decision.Allowed)
	assert.Equal(t, ReasonNotPermitted, decision.Reason)
}

func TestAuthorize_DoctorCannotCreateAppointments(t *testing.T) {
	matrix := DefaultMatrix()

	decision := matrix.Authorize(RoleDoctor, ResourceAppointment, ActionCreate)

	assert.False(t, decision.Allowed)
}

func TestAuthorize_LabTechnicianReportAccess(t *testing.T) {
	matrix := DefaultMatrix()

	for _, action := range []string{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		decision := matrix.Authorize(RoleLabTechnician, ResourceReport, action)
		assert.True(t, decision.Allowed, "lab technician should be allowed to %s reports", action)
		assert.Equal(t, ScopeOwn, decision.Scope)
	}
}

func TestAuthorize_LabTechnicianPrescriptionScope(t *testing.T) {
	matrix := DefaultMatrix()

	decision := matrix.Authorize(RoleLabTechnician, ResourcePrescription, ActionUpdate)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ScopeAssigned, decision.Scope)
}

func TestAuthorize_AdminHasFullUserAccess(t *testing.T) {
	matrix := DefaultMatrix()

	decision := matrix.Authorize(RoleAdmin, ResourceUser, ActionDelete)

	assert.True(t, decision.Allowed)
	assert.Equal(t, ScopeAll, decision.Scope)
}

func TestAuthorize_UnknownRoleFailsClosed(t *testing.T) {
	matrix := DefaultMatrix()

	for _, role := range []string{"", "superuser", "nurse", "PATIENT"} {
		decision := matrix.Authorize(role, ResourceAppointment, ActionRead)
		assert.False(t, decision.Allowed)
		assert.Equal(t, ReasonInvalidUserType, decision.Reason)
	}
}

func TestAuthorize_AdminResourceRestrictedToAdmin(t *testing.T) {
	matrix := DefaultMatrix()

	for _, role := range []string{RolePatient, RoleDoctor, RoleLabTechnician} {
		decision := matrix.Authorize(role, ResourceAdmin, ActionRead)
		assert.False(t, decision.Allowed, "role %s should not reach admin resource", role)
	}

	assert.True(t, matrix.Authorize(RoleAdmin, ResourceAdmin, ActionRead).Allowed)
}

func TestMapHTTPMethodToAction(t *testing.T) {
	assert.Equal(t, ActionRead, MapHTTPMethodToAction(http.MethodGet))
	assert.Equal(t, ActionCreate, MapHTTPMethodToAction(http.MethodPost))
	assert.Equal(t, ActionUpdate, MapHTTPMethodToAction(http.MethodPut))
	assert.Equal(t, ActionUpdate, MapHTTPMethodToAction(http.MethodPatch))
	assert.Equal(t, ActionDelete, MapHTTPMethodToAction(http.MethodDelete))
	assert.Equal(t, "", MapHTTPMethodToAction(http.MethodOptions))
}

func TestStatusCodeForReason(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, StatusCodeForReason(ReasonInvalidUserType))
	assert.Equal(t, http.StatusForbidden, StatusCodeForReason(ReasonNotPermitted))
	assert.Equal(t, http.StatusNotFound, StatusCodeForReason(ReasonUnknownResource))
}
