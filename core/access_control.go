package core

import "context"

// AccessControl holds the ownership and role membership of one contract.
// Mutations run as operations on the owning Runtime.
type AccessControl struct {
	rt       *Runtime
	contract Address
	owner    Address
	roles    map[Role]map[Address]struct{}
}

// NewAccessControl makes owner the contract owner and a DEFAULT_ADMIN.
func NewAccessControl(rt *Runtime, contract Address, owner Address) *AccessControl {
	return &AccessControl{
		rt:       rt,
		contract: contract,
		owner:    owner,
		roles: map[Role]map[Address]struct{}{
			RoleDefaultAdmin: {owner: {}},
		},
	}
}

func (a *AccessControl) Owner(ctx context.Context) Address {
	return view(ctx, a.rt, func() Address { return a.owner })
}

func (a *AccessControl) HasRole(ctx context.Context, role Role, account Address) bool {
	return view(ctx, a.rt, func() bool { return a.hasRole(role, account) })
}

func (a *AccessControl) Members(ctx context.Context, role Role) []Address {
	return view(ctx, a.rt, func() []Address {
		if role == RoleOwner {
			return []Address{a.owner}
		}
		members := make([]Address, 0, len(a.roles[role]))
		for account := range a.roles[role] {
			members = append(members, account)
		}
		return sortAddresses(members)
	})
}

func (a *AccessControl) GrantRole(ctx context.Context, caller Address, role Role, account Address) error {
	return a.rt.Atomic(ctx, "access.grant_role", a.fields(caller, role, account), func(ctx context.Context, tx *Tx) error {
		if err := a.requireAdmin(caller); err != nil {
			return err
		}
		if err := grantableRole(role); err != nil {
			return err
		}
		a.grant(tx, role, account, caller)
		return nil
	})
}

func (a *AccessControl) RevokeRole(ctx context.Context, caller Address, role Role, account Address) error {
	return a.rt.Atomic(ctx, "access.revoke_role", a.fields(caller, role, account), func(ctx context.Context, tx *Tx) error {
		if err := a.requireAdmin(caller); err != nil {
			return err
		}
		if err := grantableRole(role); err != nil {
			return err
		}
		a.revoke(tx, role, account, caller)
		return nil
	})
}

// DelegatePermissionsTo grants MINTER to account.
func (a *AccessControl) DelegatePermissionsTo(ctx context.Context, caller Address, account Address) error {
	return a.rt.Atomic(ctx, "access.delegate_permissions", a.fields(caller, RoleMinter, account), func(ctx context.Context, tx *Tx) error {
		if err := a.requireAdmin(caller); err != nil {
			return err
		}
		if account == ZeroAddress {
			return ErrZeroAddress
		}
		a.grant(tx, RoleMinter, account, caller)
		return nil
	})
}

func (a *AccessControl) TransferOwnership(ctx context.Context, caller Address, newOwner Address) error {
	return a.rt.Atomic(ctx, "access.transfer_ownership", a.fields(caller, RoleOwner, newOwner), func(ctx context.Context, tx *Tx) error {
		if err := a.requireOwner(caller); err != nil {
			return err
		}
		if newOwner == ZeroAddress {
			return ErrZeroAddress
		}
		previous := a.owner
		if previous == newOwner {
			return nil
		}
		a.owner = newOwner
		tx.OnRollback(func() { a.owner = previous })
		tx.Emit(OwnershipTransferred{Contract: a.contract, Previous: previous, New: newOwner})
		return nil
	})
}

func (a *AccessControl) hasRole(role Role, account Address) bool {
	if role == RoleOwner {
		return account == a.owner
	}
	_, ok := a.roles[role][account]
	return ok
}

func (a *AccessControl) requireOwner(caller Address) error {
	if caller != a.owner {
		return &NotOwnerError{Caller: caller}
	}
	return nil
}

func (a *AccessControl) requireAdmin(caller Address) error {
	if !a.hasRole(RoleDefaultAdmin, caller) {
		return &AdminRoleRequiredError{Caller: caller}
	}
	return nil
}

func (a *AccessControl) requireMinter(caller Address) error {
	if !a.hasRole(RoleMinter, caller) {
		return &MinterRoleRequiredError{Caller: caller}
	}
	return nil
}

func (a *AccessControl) grant(tx *Tx, role Role, account Address, sender Address) {
	if a.hasRole(role, account) {
		return
	}
	members, ok := a.roles[role]
	if !ok {
		members = map[Address]struct{}{}
		a.roles[role] = members
	}
	members[account] = struct{}{}
	tx.OnRollback(func() { delete(members, account) })
	tx.Emit(RoleGranted{Contract: a.contract, Role: role, Account: account, Sender: sender})
}

func (a *AccessControl) revoke(tx *Tx, role Role, account Address, sender Address) {
	if !a.hasRole(role, account) {
		return
	}
	members := a.roles[role]
	delete(members, account)
	tx.OnRollback(func() { members[account] = struct{}{} })
	tx.Emit(RoleRevoked{Contract: a.contract, Role: role, Account: account, Sender: sender})
}

func (a *AccessControl) fields(caller Address, role Role, account Address) map[string]any {
	return map[string]any{
		"contract": a.contract.Hex(),
		"caller":   caller.Hex(),
		"role":     string(role),
		"account":  account.Hex(),
	}
}

func grantableRole(role Role) error {
	switch role {
	case RoleDefaultAdmin, RoleMinter:
		return nil
	default:
		return invalidArguments("role %q cannot be granted", role)
	}
}
