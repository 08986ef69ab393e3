// Package privacy provides an authorization layer evaluated before
// queries and mutations reach the database.
//
// # Core Concepts
//
// The privacy layer is built around three main concepts:
//
//   - Policy: a collection of rules that determine access to entities
//   - Rule: a function that returns Allow, Deny, or Skip decisions
//   - Viewer: an interface representing the current user/context
//
// # Defining Policies
//
// A policy groups query and mutation rule chains and is attached to an
// entity manager with tabula.WithPolicy:
//
//	manager := tabula.NewEntityManager(drv, tabula.WithPolicy(privacy.Policy{
//	    Mutation: privacy.MutationPolicy{
//	        privacy.DenyIfNoViewer(),       // require authentication
//	        privacy.HasRole("admin"),       // allow admins
//	        privacy.IsOwner("user_id"),     // allow owners
//	        privacy.AlwaysDenyRule(),       // deny by default
//	    },
//	    Query: privacy.QueryPolicy{
//	        privacy.AlwaysAllowRule(),
//	    },
//	}))
//
// # Rule Evaluation
//
// Rules are evaluated in order until one returns a final decision:
//
//   - Allow: grants access and stops evaluation
//   - Deny: denies access and stops evaluation
//   - Skip: continues to the next rule
//
// If all rules return Skip, the operation is allowed.
//
// # Built-in Rules
//
// The package provides several built-in rules:
//
//   - DenyIfNoViewer: denies if no viewer is present in context
//   - AlwaysAllowRule / AlwaysDenyRule: fixed decisions
//   - HasRole / HasAnyRole: role checks against the viewer
//   - IsOwner: allows mutations whose owner field matches the viewer
//   - TenantRule / TenantQueryRule: multi-tenant isolation
//   - DenySystemEntityWriteRule: guards framework-internal entities
//   - OnEntity / OnMutationOperation: scope any rule to an entity or operation
//
// # Query Narrowing
//
// Query rules receive the query by pointer and may narrow its filter
// before compilation, implementing row-level security:
//
//	privacy.FilterFunc(func(ctx context.Context, q *tabula.Query) error {
//	    q.Filter["tenant_id"] = tenantID
//	    return privacy.Skip
//	})
//
// # Viewer Interface
//
// The Viewer interface represents the authenticated user and is carried
// on the context:
//
//	ctx := privacy.WithViewer(ctx, &privacy.SimpleViewer{
//	    UserID: "user-123",
//	    Roles:  []string{"user"},
//	})
//	rows, err := repo.FindMany(ctx, tabula.Query{})
package privacy
