package infra

import (
	"github.com/OlegKumachev/kiout-test-backend/internal/domain"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && (r.act == p.act || p.act == "*")
`

// NewEnforcer builds an in-memory enforcer seeded with the role policies.
// Staff inherits every member permission.
func NewEnforcer() (*casbin.Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, err
	}

	policies := [][]string{
		{domain.RoleMember, domain.ResourceWorker, domain.ActionRead},
		{domain.RoleStaff, domain.ResourceWorker, "*"},
		{domain.RoleStaff, domain.ResourceUser, "*"},
	}
	if _, err := e.AddPolicies(policies); err != nil {
		return nil, err
	}

	if _, err := e.AddGroupingPolicy(domain.RoleStaff, domain.RoleMember); err != nil {
		return nil, err
	}

	return e, nil
}
