package enum

// Bucket represents a UTC day-part an instant falls into.
//
//go:generate go tool enumer -type=Bucket -trimprefix=Bucket -transform=lower
type Bucket int

const (
	// BucketNight covers 00:00 to 05:00 UTC.
	BucketNight Bucket = iota
	// BucketMorning covers 05:00 to 12:00 UTC.
	BucketMorning
	// BucketAfternoon covers 12:00 to 18:00 UTC.
	BucketAfternoon
	// BucketEvening covers 18:00 to 24:00 UTC.
	BucketEvening
)

// BucketCount is the number of day-parts.
const BucketCount = 4
