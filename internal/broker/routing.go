package broker

// Enquiry chat rooms share one stream; each room publishes on its own
// subject so a consumer can filter by request id.
var (
	StreamName   = "VENUE"
	SubjectRooms = StreamName + ".room.*"
)

// RoomSubject returns the subject messages of one enquiry room are published on.
func RoomSubject(requestID string) string {
	return StreamName + ".room." + requestID
}
