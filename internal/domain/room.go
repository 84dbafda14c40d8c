package domain

// RoomName identifies a conferencing session. A room is created on the first
// join under a given name and destroyed when its last participant leaves.
type RoomName string
