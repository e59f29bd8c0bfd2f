package device

import "sort"

// OtherRoom is the bucket for devices without a room assignment.
const OtherRoom = "Other"

// Rooms is a room-keyed view of devices.
type Rooms struct {
	// Names lists the room names in lexicographic order.
	Names []string `json:"rooms"`
	// ByRoom maps each room name to its devices, in input order.
	ByRoom map[string][]Device `json:"devices"`
}

// GroupByRoom buckets devices by room name. Devices with no room go to
// OtherRoom. It does not look at categories; callers pass the light list.
func GroupByRoom(devices []Device) Rooms {
	r := Rooms{
		Names:  []string{},
		ByRoom: make(map[string][]Device),
	}
	for _, d := range devices {
		room := d.Room
		if room == "" {
			room = OtherRoom
		}
		if _, seen := r.ByRoom[room]; !seen {
			r.Names = append(r.Names, room)
		}
		r.ByRoom[room] = append(r.ByRoom[room], d)
	}
	sort.Strings(r.Names)
	return r
}
