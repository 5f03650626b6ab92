package models

// Partition names one of the two marker collections kept by the client.
type Partition string

const (
	// PartitionActive holds pins whose paid time has not run out yet.
	PartitionActive Partition = "active"
	// PartitionDeactivated holds pins that expired server-side.
	PartitionDeactivated Partition = "deactivated"
)

// Valid reports whether p is one of the two known partitions.
func (p Partition) Valid() bool {
	return p == PartitionActive || p == PartitionDeactivated
}

// Provenance records which source a marker arrived from.
type Provenance string

const (
	// ProvenanceFetched marks markers taken from a paginated REST snapshot.
	ProvenanceFetched Provenance = "fetched"
	// ProvenancePushed marks markers delivered live over the push channel.
	ProvenancePushed Provenance = "pushed"
)

// Marker is one paid pin on the shared map.
type Marker struct {
	// ID is the server-assigned identifier, unique within its partition.
	ID int64 `json:"id"`
	// Lat is the latitude of the pin.
	Lat float64 `json:"lat"`
	// Long is the longitude of the pin.
	Long float64 `json:"long"`
	// Message is the free-text message attached to the pin.
	Message string `json:"message"`
	// Amount is the paid amount in satoshis.
	Amount int64 `json:"amount"`
	// Provenance is how the marker reached this client. Not part of the
	// wire format.
	Provenance Provenance `json:"-"`
}
