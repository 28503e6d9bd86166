package appointment

// OtherParty returns the user who should hear about an action taken by
// actorID: the advisor when the client acted, otherwise the client.
func OtherParty(a *Appointment, actorID int64) int64 {
	if actorID == a.ClientID {
		return a.AdvisorID
	}
	return a.ClientID
}

// Recipients lists everyone to notify about an action by actorID. A third
// party such as an admin reaches both participants.
func Recipients(a *Appointment, actorID int64) []int64 {
	if actorID == a.ClientID || actorID == a.AdvisorID {
		return []int64{OtherParty(a, actorID)}
	}
	return []int64{a.ClientID, a.AdvisorID}
}
