package storage

// NotFoundError is returned when a record doesn't exist in the store.
type NotFoundError struct {
	Bucket string
	Key    string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return "record not found"
	}

	return "record not found: " + e.Bucket + "/" + e.Key
}
