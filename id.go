package coach

import "go.jetify.com/typeid"

// NewThreadID returns a new unique thread identifier.
func NewThreadID() string {
	id, err := typeid.WithPrefix("thread")
	if err != nil {
		panic(err)
	}
	return id.String()
}
