package domain

// PlanningForm holds the questionnaire scalars a DJ works from. JSON keys
// match the AI parser's extracted field names.
type PlanningForm struct {
	// General info
	MailingAddress   string `json:"mailingAddress,omitempty"`
	GuestCount       int    `json:"guestCount,omitempty"`
	CoordinatorName  string `json:"coordinatorName,omitempty"`
	CoordinatorEmail string `json:"coordinatorEmail,omitempty"`
	CoordinatorPhone string `json:"coordinatorPhone,omitempty"`
	PhotographerName string `json:"photographerName,omitempty"`
	VideographerName string `json:"videographerName,omitempty"`
	OtherVendors     string `json:"otherVendors,omitempty"`
	VenueName        string `json:"venueName,omitempty"`

	// Ceremony
	CeremonyStartTime     string `json:"ceremonyStartTime,omitempty"`
	CeremonyLocation      string `json:"ceremonyLocation,omitempty"`
	OfficiantName         string `json:"officiantName,omitempty"`
	GuestArrivalMusic     string `json:"guestArrivalMusic,omitempty"`
	ProcessionalSong      string `json:"processionalSong,omitempty"`
	BrideProcessionalSong string `json:"brideProcessionalSong,omitempty"`
	RecessionalSong       string `json:"recessionalSong,omitempty"`
	CeremonyMicNeeded     bool   `json:"ceremonyMicNeeded,omitempty"`
	CeremonyNotes         string `json:"ceremonyNotes,omitempty"`

	// Add-ons
	CeremonyAudio   bool   `json:"ceremonyAudio,omitempty"`
	Uplighting      bool   `json:"uplighting,omitempty"`
	PhotoBooth      bool   `json:"photoBooth,omitempty"`
	DancingOnClouds bool   `json:"dancingOnClouds,omitempty"`
	ColdSparks      bool   `json:"coldSparks,omitempty"`
	Monogram        bool   `json:"monogram,omitempty"`
	AddOnsNotes     string `json:"addOnsNotes,omitempty"`

	// Cocktail hour
	CocktailHourLocation string `json:"cocktailHourLocation,omitempty"`
	CocktailHourMusic    string `json:"cocktailHourMusic,omitempty"`
	CocktailHourNotes    string `json:"cocktailHourNotes,omitempty"`

	// Introductions
	IntroductionsTime     string `json:"introductionsTime,omitempty"`
	WeddingPartyIntroSong string `json:"weddingPartyIntroSong,omitempty"`
	CoupleIntroSong       string `json:"coupleIntroSong,omitempty"`
	IntroductionsOrder    string `json:"introductionsOrder,omitempty"`

	// Reception
	FirstDanceSong     string `json:"firstDanceSong,omitempty"`
	FatherDaughterSong string `json:"fatherDaughterSong,omitempty"`
	MotherSonSong      string `json:"motherSonSong,omitempty"`
	AnniversaryDance   bool   `json:"anniversaryDance,omitempty"`
	BouquetTossSong    string `json:"bouquetTossSong,omitempty"`
	GarterTossSong     string `json:"garterTossSong,omitempty"`
	CakeCuttingSong    string `json:"cakeCuttingSong,omitempty"`
	LastDanceSong      string `json:"lastDanceSong,omitempty"`
	PrivateLastDance   bool   `json:"privateLastDance,omitempty"`
	DinnerMusicStyle   string `json:"dinnerMusicStyle,omitempty"`
	SpecialDances      string `json:"specialDances,omitempty"`
	ReceptionNotes     string `json:"receptionNotes,omitempty"`

	// Music notes
	MusicNotes           string `json:"musicNotes,omitempty"`
	GuestRequestsAllowed bool   `json:"guestRequestsAllowed,omitempty"`
	ExplicitMusicOK      bool   `json:"explicitMusicOk,omitempty"`
}

// Song is one entry in a music-ideas category list.
type Song struct {
	SongTitle          string `json:"song_title"`
	Artist             string `json:"artist,omitempty"`
	ClientVisibleTitle string `json:"client_visible_title,omitempty"`
}

// Music idea category names. Every song lives in exactly one.
const (
	CategoryMustPlay          = "must_play"
	CategoryPlayIfPossible    = "play_if_possible"
	CategoryDedication        = "dedication"
	CategoryPlayOnlyRequested = "play_only_if_requested"
	CategoryDoNotPlay         = "do_not_play"
	CategoryGuestRequest      = "guest_request"
)

// MusicCategoryLimits caps each category for the interactive editor.
// guest_request is intentionally absent (unlimited). The field mapper does
// NOT consult these; only the editor save path does.
var MusicCategoryLimits = map[string]int{
	CategoryMustPlay:          60,
	CategoryPlayIfPossible:    30,
	CategoryDedication:        10,
	CategoryPlayOnlyRequested: 5,
	CategoryDoNotPlay:         10,
}

// MusicIdeasForm groups songs into the six fixed categories.
type MusicIdeasForm struct {
	MustPlay            []Song `json:"must_play"`
	PlayIfPossible      []Song `json:"play_if_possible"`
	Dedication          []Song `json:"dedication"`
	PlayOnlyIfRequested []Song `json:"play_only_if_requested"`
	DoNotPlay           []Song `json:"do_not_play"`
	GuestRequest        []Song `json:"guest_request"`
}

// Category returns the list for a category name, or nil when unknown.
func (m *MusicIdeasForm) Category(name string) []Song {
	switch name {
	case CategoryMustPlay:
		return m.MustPlay
	case CategoryPlayIfPossible:
		return m.PlayIfPossible
	case CategoryDedication:
		return m.Dedication
	case CategoryPlayOnlyRequested:
		return m.PlayOnlyIfRequested
	case CategoryDoNotPlay:
		return m.DoNotPlay
	case CategoryGuestRequest:
		return m.GuestRequest
	}
	return nil
}

// SetCategory replaces the list for a known category name.
func (m *MusicIdeasForm) SetCategory(name string, songs []Song) {
	switch name {
	case CategoryMustPlay:
		m.MustPlay = songs
	case CategoryPlayIfPossible:
		m.PlayIfPossible = songs
	case CategoryDedication:
		m.Dedication = songs
	case CategoryPlayOnlyRequested:
		m.PlayOnlyIfRequested = songs
	case CategoryDoNotPlay:
		m.DoNotPlay = songs
	case CategoryGuestRequest:
		m.GuestRequest = songs
	}
}

// CategoryNames in display order.
func CategoryNames() []string {
	return []string{
		CategoryMustPlay,
		CategoryPlayIfPossible,
		CategoryDedication,
		CategoryPlayOnlyRequested,
		CategoryDoNotPlay,
		CategoryGuestRequest,
	}
}

// LimitViolations reports categories over their editor cap.
func (m *MusicIdeasForm) LimitViolations() map[string]int {
	var out map[string]int
	for name, limit := range MusicCategoryLimits {
		if n := len(m.Category(name)); n > limit {
			if out == nil {
				out = map[string]int{}
			}
			out[name] = n
		}
	}
	return out
}

// TimelineItem is one row of the day-of timeline. Order is a contiguous
// 0-based ranking matching list position.
type TimelineItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time,omitempty"`
	Notes      string `json:"notes,omitempty"`
	TimeOffset int    `json:"time_offset,omitempty"`
	Order      int    `json:"order"`
}

// TimelineForm is the ordered day-of schedule.
type TimelineForm struct {
	TimelineItems []TimelineItem `json:"timeline_items"`
}

// EmptyPlanningForm returns the documented all-empty default.
func EmptyPlanningForm() PlanningForm { return PlanningForm{} }

// EmptyMusicIdeasForm returns a form with all six lists present but empty.
func EmptyMusicIdeasForm() MusicIdeasForm {
	return MusicIdeasForm{
		MustPlay:            []Song{},
		PlayIfPossible:      []Song{},
		Dedication:          []Song{},
		PlayOnlyIfRequested: []Song{},
		DoNotPlay:           []Song{},
		GuestRequest:        []Song{},
	}
}

// EmptyTimelineForm returns a timeline with no items.
func EmptyTimelineForm() TimelineForm {
	return TimelineForm{TimelineItems: []TimelineItem{}}
}
