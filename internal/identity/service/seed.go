package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"revenuehub/internal/access"
	"revenuehub/internal/identity/models"
	"revenuehub/internal/identity/secrets"
	id "revenuehub/pkg/domain"
	"revenuehub/pkg/platform/sentinel"
	"revenuehub/pkg/requestcontext"
)

// DemoPassword is the password of every seeded demo account.
const DemoPassword = "Test1234!"

// DemoAccount is one seeded login.
type DemoAccount struct {
	Email string
	Name  string
	Role  id.Role
}

// DemoAccounts lists one account per role.
var DemoAccounts = []DemoAccount{
	{Email: "superadmin@test.com", Name: "Super Admin", Role: id.RoleSuperAdmin},
	{Email: "mmdaadmin@test.com", Name: "MMDA Admin", Role: id.RoleMMDAAdmin},
	{Email: "finance@test.com", Name: "Finance Officer", Role: id.RoleFinance},
	{Email: "collector@test.com", Name: "Revenue Collector", Role: id.RoleCollector},
	{Email: "auditor@test.com", Name: "Internal Auditor", Role: id.RoleAuditor},
	{Email: "businessowner@test.com", Name: "Business Owner", Role: id.RoleBusinessOwner},
	{Email: "monitoring@test.com", Name: "Monitoring Officer", Role: id.RoleMonitoringBody},
	{Email: "registrationofficer@test.com", Name: "Registration Officer", Role: id.RoleBusinessRegistrationOfficer},
	{Email: "regionaladmin@test.com", Name: "Regional Admin", Role: id.RoleRegionalAdmin},
}

// SeedDemoUsers creates the demo accounts that do not exist yet, placing
// district roles in district and the regional admin in its region. It returns
// the number of accounts created.
func (s *Service) SeedDemoUsers(ctx context.Context, district string) (int, error) {
	region, _ := s.regions.RegionOf(district)
	hash, err := secrets.Hash(DemoPassword)
	if err != nil {
		return 0, err
	}
	now := requestcontext.Now(ctx)
	created := 0
	for _, acct := range DemoAccounts {
		d, r := district, region
		switch {
		case access.IsUnrestricted(acct.Role):
			d, r = "", ""
		case acct.Role == id.RoleRegionalAdmin:
			d = ""
		}
		u, err := models.NewUser(id.UserID(uuid.New()), acct.Email, acct.Name, acct.Role, d, r, hash, now)
		if err != nil {
			return created, err
		}
		if err := s.users.Create(ctx, u); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				continue
			}
			return created, err
		}
		s.logger.InfoContext(ctx, "demo user seeded", "email", u.Email, "role", u.Role)
		created++
	}
	return created, nil
}
