package sync

import (
	"fmt"
	"strings"

	"github.com/marcus/possync/internal/models"
	"github.com/marcus/possync/internal/posclient"
)

// SyncStaff reconciles employees with the POS team roster in the directions
// the tenant's configuration allows.
func (s *Service) SyncStaff(tenantID string) (*Result, error) {
	cfg, err := s.config(tenantID)
	if err != nil {
		return nil, err
	}

	result := newResult(models.OpSyncStaff, cfg.AutoSyncDirection)

	if cfg.AutoSyncDirection != models.DirectionRemoteToLocal {
		if err := s.pushStaff(tenantID, result); err != nil {
			return result.finish(), err
		}
	}
	if cfg.AutoSyncDirection != models.DirectionLocalToRemote {
		if err := s.pullStaff(tenantID, result); err != nil {
			return result.finish(), err
		}
	}

	s.logger.Info("staff sync finished", "tenant", tenantID, "summary", result.Summary())
	return result.finish(), nil
}

// pushStaff sends the active roster to the POS. Inactive and terminated
// employees are only pushed individually, when their status change is the
// thing being propagated.
func (s *Service) pushStaff(tenantID string, result *Result) error {
	employees, err := s.db.ListEmployees(tenantID, true, nil)
	if err != nil {
		return fmt.Errorf("list employees: %w", err)
	}

	for i := range employees {
		created, err := s.PushEmployee(tenantID, employees[i].ID)
		switch {
		case err != nil:
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("employee %s: %v", employees[i].ID, err))
		case created:
			result.Created++
		default:
			result.Updated++
		}
	}
	return nil
}

func (s *Service) pullStaff(tenantID string, result *Result) error {
	members, err := s.pos.SearchAllTeamMembers(nil)
	if err != nil {
		return fmt.Errorf("search team members: %w", err)
	}

	for i := range members {
		tm := &members[i]
		if tm.IsOwner {
			// The account owner is not a rostered employee.
			result.Skipped++
			continue
		}
		if err := s.pullTeamMember(tenantID, tm, result); err != nil {
			result.Errors++
			result.Warnings = append(result.Warnings, fmt.Sprintf("team member %s: %v", tm.ID, err))
			s.auditError(tenantID, models.OpSyncStaff, models.DirectionRemoteToLocal, models.EntityEmployee, "", tm.ID, err)
		}
	}
	return nil
}

func (s *Service) pullTeamMember(tenantID string, tm *posclient.TeamMember, result *Result) error {
	mapping, err := s.mapper.GetByRemoteID(tenantID, models.EntityEmployee, tm.ID, "")
	if err != nil {
		return err
	}

	if mapping == nil {
		emp := &models.Employee{TenantID: tenantID}
		applyTeamMember(emp, tm)
		if err := s.db.CreateEmployee(emp); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		mapping = &models.Mapping{
			TenantID:      tenantID,
			EntityType:    models.EntityEmployee,
			LocalID:       emp.ID,
			RemoteID:      tm.ID,
			SyncDirection: models.DirectionBidirectional,
		}
		if err := s.mapper.Create(mapping); err != nil {
			return fmt.Errorf("create mapping: %w", err)
		}
		if err := s.mapper.TouchSynced(mapping.ID, models.DirectionRemoteToLocal); err != nil {
			return err
		}
		s.auditSuccess(tenantID, models.OpSyncStaff, models.DirectionRemoteToLocal, models.EntityEmployee, emp.ID, tm.ID)
		result.Created++
		return nil
	}

	if mapping.SyncDirection == models.DirectionLocalToRemote {
		// Rostering owns this employee locally.
		result.Skipped++
		return nil
	}

	emp, err := s.db.GetEmployee(tenantID, mapping.LocalID)
	if err != nil {
		return err
	}
	applyTeamMember(emp, tm)
	if err := s.db.UpdateEmployee(emp); err != nil {
		return fmt.Errorf("update employee: %w", err)
	}
	if err := s.mapper.TouchSynced(mapping.ID, models.DirectionRemoteToLocal); err != nil {
		return err
	}
	s.auditSuccess(tenantID, models.OpSyncStaff, models.DirectionRemoteToLocal, models.EntityEmployee, emp.ID, tm.ID)
	result.Updated++
	return nil
}

// PushEmployee sends one employee to the POS, creating the team member and
// its mapping on first contact. Returns true when the team member was
// created rather than updated.
func (s *Service) PushEmployee(tenantID, employeeID string) (bool, error) {
	emp, err := s.db.GetEmployee(tenantID, employeeID)
	if err != nil {
		return false, err
	}

	mapping, err := s.mapper.GetByLocalID(tenantID, models.EntityEmployee, employeeID)
	if err != nil {
		return false, err
	}

	tm := teamMemberFromEmployee(emp)

	var saved *posclient.TeamMember
	created := mapping == nil
	if mapping != nil {
		saved, err = s.pos.UpdateTeamMember(mapping.RemoteID, tm)
	} else {
		saved, err = s.pos.CreateTeamMember(tm)
	}
	if err != nil {
		remoteID := ""
		if mapping != nil {
			remoteID = mapping.RemoteID
		}
		s.auditError(tenantID, models.OpSyncStaff, models.DirectionLocalToRemote, models.EntityEmployee, employeeID, remoteID, err)
		return false, fmt.Errorf("push team member: %w", err)
	}

	if mapping == nil {
		mapping, err = s.mapper.FindOrCreate(tenantID, models.EntityEmployee, employeeID, saved.ID, "")
		if err != nil {
			return false, fmt.Errorf("create mapping: %w", err)
		}
	}
	if err := s.mapper.TouchSynced(mapping.ID, models.DirectionLocalToRemote); err != nil {
		return false, err
	}

	s.auditSuccess(tenantID, models.OpSyncStaff, models.DirectionLocalToRemote, models.EntityEmployee, employeeID, saved.ID)
	return created, nil
}

// teamMemberFromEmployee maps a local employee onto the POS wire shape.
func teamMemberFromEmployee(emp *models.Employee) *posclient.TeamMember {
	given, family := splitName(emp.FullName)
	if given == "" && emp.Email != "" {
		// No name on file; the email local part is better than nothing.
		given = strings.SplitN(emp.Email, "@", 2)[0]
	}

	tm := &posclient.TeamMember{
		GivenName:      given,
		FamilyName:     family,
		EmailAddress:   emp.Email,
		Status:         posStatus(emp.Status),
		AssignmentType: posAssignment(emp.Role),
		StartDate:      emp.StartDate,
		EndDate:        emp.EndDate,
	}
	if emp.Status == models.EmployeeTerminated && tm.EndDate == "" {
		// Termination date is not tracked locally. The start date is an
		// approximation, but the POS needs some end date to stop
		// rostering them.
		tm.EndDate = emp.StartDate
	}
	return tm
}

// applyTeamMember copies the POS roster fields onto a local employee.
// A member with no name at all still needs something in full_name.
func applyTeamMember(emp *models.Employee, tm *posclient.TeamMember) {
	full := strings.TrimSpace(tm.GivenName + " " + tm.FamilyName)
	if full == "" {
		full = tm.EmailAddress
	}
	if full == "" {
		full = "Unknown"
	}
	emp.FullName = full
	emp.Email = tm.EmailAddress
	emp.Role = localRole(tm.AssignmentType)
	emp.Status = localStatus(tm.Status)
	emp.StartDate = tm.StartDate
	emp.EndDate = tm.EndDate
}

func splitName(full string) (given, family string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func posStatus(status models.EmployeeStatus) string {
	switch status {
	case models.EmployeeInactive:
		return posclient.TeamMemberInactive
	case models.EmployeeTerminated:
		return posclient.TeamMemberTerminated
	default:
		return posclient.TeamMemberActive
	}
}

func localStatus(status string) models.EmployeeStatus {
	switch status {
	case posclient.TeamMemberInactive:
		return models.EmployeeInactive
	case posclient.TeamMemberTerminated:
		return models.EmployeeTerminated
	default:
		return models.EmployeeActive
	}
}

func posAssignment(role string) string {
	lower := strings.ToLower(role)
	if strings.Contains(lower, "manager") || strings.Contains(lower, "admin") {
		return posclient.AssignmentManager
	}
	return posclient.AssignmentEmployee
}

func localRole(assignment string) string {
	if assignment == posclient.AssignmentManager {
		return "manager"
	}
	return "employee"
}
