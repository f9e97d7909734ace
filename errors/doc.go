/*
Package errors provides semantic error types for the entitysync library.

Every failure of a provider operation carries the entity type and the operation that
was attempted, and can be matched with errors.Is() against one of the sentinels:

	var (
	    ErrNotFound              = errors.New("entity not found")
	    ErrUnsupportedOperation  = errors.New("unsupported operation")
	    ErrFilterPolicyViolation = errors.New("filter policy violation")
	    ErrTransport             = errors.New("transport failure")
	    ErrInvalidInput          = errors.New("invalid input")
	)

Usage:

	user, err := provider.Get(ctx, sc, "User", entity.IntKey(1))
	if err != nil {
	    if errors.IsNotFound(err) {
	        return nil, fmt.Errorf("user 1 does not exist")
	    }
	    return nil, err
	}

Errors raised while resolving a lazily loaded relationship surface at the point where
the relationship is first accessed, not where the owning entity was fetched.
*/
package errors
