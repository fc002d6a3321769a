package access

import (
	"errors"
	"fmt"

	"github.com/ayo6706/custodial-ledger/internal/auth"
)

type Operation string

const (
	OpConstruct  Operation = "construct"
	OpRegister   Operation = "register"
	OpDeposit    Operation = "deposit"
	OpWithdraw   Operation = "withdraw"
	OpDescribe   Operation = "describe"
	OpMarkKnown  Operation = "mark_known"
	OpPooledFund Operation = "pooled_fund"
	OpMintBadge  Operation = "mint_badge"
)

type Privilege int

const (
	PrivilegeAny Privilege = iota
	PrivilegeCustomer
	PrivilegeAdmin
)

var (
	ErrUnauthenticated = errors.New("access: credential required")
	ErrForbidden       = errors.New("access: operation not permitted")
)

// Policy maps each operation to the privilege its caller must hold.
// Operations missing from the policy are denied.
type Policy map[Operation]Privilege

func DefaultPolicy() Policy {
	return Policy{
		OpConstruct:  PrivilegeAny,
		OpRegister:   PrivilegeAny,
		OpDeposit:    PrivilegeCustomer,
		OpWithdraw:   PrivilegeCustomer,
		OpDescribe:   PrivilegeAdmin,
		OpMarkKnown:  PrivilegeAdmin,
		OpPooledFund: PrivilegeAdmin,
		OpMintBadge:  PrivilegeAdmin,
	}
}

// Authorize decides whether principal may invoke op. A nil principal is an
// anonymous caller.
func (p Policy) Authorize(principal *auth.Principal, op Operation) error {
	required, ok := p[op]
	if !ok {
		return fmt.Errorf("%w: unknown operation %q", ErrForbidden, op)
	}

	switch required {
	case PrivilegeAny:
		return nil
	case PrivilegeCustomer:
		if principal == nil {
			return ErrUnauthenticated
		}
		if !principal.IsCustomer() {
			return fmt.Errorf("%w: %s requires a customer badge", ErrForbidden, op)
		}
		return nil
	case PrivilegeAdmin:
		if principal == nil {
			return ErrUnauthenticated
		}
		if !principal.IsAdmin() {
			return fmt.Errorf("%w: %s requires admin", ErrForbidden, op)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown privilege for %q", ErrForbidden, op)
	}
}

// Authorize evaluates the default policy.
func Authorize(principal *auth.Principal, op Operation) error {
	return DefaultPolicy().Authorize(principal, op)
}
