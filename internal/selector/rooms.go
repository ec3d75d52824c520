package selector

// Room labels as inferred from detected objects. The lookup table is a
// reasonable baseline, not a normative constant.
const (
	RoomKitchen    = "Kitchen"
	RoomBathroom   = "Bathroom"
	RoomBedroom    = "Bedroom"
	RoomLivingRoom = "Living Room"
	RoomDiningRoom = "Dining Room"
	RoomStudy      = "Study"
	RoomHallway    = "Hallway"
	RoomEntryway   = "Entryway"
	RoomLaundry    = "Laundry"
	RoomBalcony    = "Balcony"
	RoomGarage     = "Garage"
	RoomOther      = "Other"
	RoomUnknown    = "Unknown"
)

// RoomPriority is the trim order for the essential set: when the budget
// cannot hold one frame per room, higher-priority rooms are kept first.
var RoomPriority = []string{
	RoomKitchen,
	RoomBathroom,
	RoomBedroom,
	RoomLivingRoom,
	RoomDiningRoom,
	RoomStudy,
	RoomHallway,
	RoomEntryway,
	RoomLaundry,
	RoomBalcony,
	RoomGarage,
	RoomOther,
	RoomUnknown,
}

// labelRooms maps detected object labels to the room they vote for.
var labelRooms = map[string]string{
	"oven":            RoomKitchen,
	"refrigerator":    RoomKitchen,
	"microwave":       RoomKitchen,
	"toaster":         RoomKitchen,
	"kettle":          RoomKitchen,
	"stove":           RoomKitchen,
	"toilet":          RoomBathroom,
	"bathtub":         RoomBathroom,
	"sink":            RoomBathroom,
	"toothbrush":      RoomBathroom,
	"hair drier":      RoomBathroom,
	"towel":           RoomBathroom,
	"bed":             RoomBedroom,
	"pillow":          RoomBedroom,
	"wardrobe":        RoomBedroom,
	"couch":           RoomLivingRoom,
	"sofa":            RoomLivingRoom,
	"tv":              RoomLivingRoom,
	"remote":          RoomLivingRoom,
	"coffee table":    RoomLivingRoom,
	"dining table":    RoomDiningRoom,
	"wine glass":      RoomDiningRoom,
	"fork":            RoomDiningRoom,
	"knife":           RoomDiningRoom,
	"spoon":           RoomDiningRoom,
	"bowl":            RoomDiningRoom,
	"book":            RoomStudy,
	"laptop":          RoomStudy,
	"keyboard":        RoomStudy,
	"mouse":           RoomStudy,
	"desk":            RoomStudy,
	"umbrella":        RoomEntryway,
	"backpack":        RoomEntryway,
	"handbag":         RoomEntryway,
	"washing machine": RoomLaundry,
	"dryer":           RoomLaundry,
	"potted plant":    RoomBalcony,
	"bicycle":         RoomGarage,
	"car":             RoomGarage,
	"motorcycle":      RoomGarage,
	"chair":           RoomOther,
	"vase":            RoomOther,
	"clock":           RoomOther,
}

// priorityRank returns the position of room in the trim order. Rooms not in
// the table rank after everything else.
func priorityRank(room string) int {
	for i, r := range RoomPriority {
		if r == room {
			return i
		}
	}
	return len(RoomPriority)
}

// inferRoom picks the room with the most label votes. Ties go to the label
// seen first; no votes means Unknown.
func inferRoom(labels []string) string {
	votes := make(map[string]int)
	var order []string
	for _, label := range labels {
		room, ok := labelRooms[label]
		if !ok {
			continue
		}
		if votes[room] == 0 {
			order = append(order, room)
		}
		votes[room]++
	}
	best := RoomUnknown
	bestVotes := 0
	for _, room := range order {
		if votes[room] > bestVotes {
			best = room
			bestVotes = votes[room]
		}
	}
	return best
}
