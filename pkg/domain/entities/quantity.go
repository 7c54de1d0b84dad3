package entities

// IntPtr returns a pointer to the given quantity
func IntPtr(v int) *int {
	return &v
}

// Int64Ptr returns a pointer to the given pack count
func Int64Ptr(v int64) *int64 {
	return &v
}

// zeroIfNil treats an absent quantity as zero
func zeroIfNil(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func zeroIfNil64(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func copyInt64(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
