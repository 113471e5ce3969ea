package mapper

import (
	"mixcue/internal/domain"
)

// FillPlanningForm copies extracted scalars onto the planning form. Fields
// absent from the extraction are left untouched; booleans and numbers are
// copied even when zero; strings only when non-empty after trimming. The
// appendMode flag exists for call-site symmetry with the collection mappers
// and has no effect on scalars.
func (m Mapper) FillPlanningForm(current domain.PlanningForm, ex domain.Extraction, appendMode bool) domain.PlanningForm {
	out := current
	fields := ex.ExtractedFields
	if len(fields) == 0 {
		return out
	}

	stringTargets := map[string]*string{
		"mailingAddress":        &out.MailingAddress,
		"coordinatorName":       &out.CoordinatorName,
		"coordinatorEmail":      &out.CoordinatorEmail,
		"coordinatorPhone":      &out.CoordinatorPhone,
		"photographerName":      &out.PhotographerName,
		"videographerName":      &out.VideographerName,
		"otherVendors":          &out.OtherVendors,
		"venueName":             &out.VenueName,
		"ceremonyLocation":      &out.CeremonyLocation,
		"officiantName":         &out.OfficiantName,
		"guestArrivalMusic":     &out.GuestArrivalMusic,
		"processionalSong":      &out.ProcessionalSong,
		"brideProcessionalSong": &out.BrideProcessionalSong,
		"recessionalSong":       &out.RecessionalSong,
		"ceremonyNotes":         &out.CeremonyNotes,
		"addOnsNotes":           &out.AddOnsNotes,
		"cocktailHourLocation":  &out.CocktailHourLocation,
		"cocktailHourMusic":     &out.CocktailHourMusic,
		"cocktailHourNotes":     &out.CocktailHourNotes,
		"weddingPartyIntroSong": &out.WeddingPartyIntroSong,
		"coupleIntroSong":       &out.CoupleIntroSong,
		"introductionsOrder":    &out.IntroductionsOrder,
		"firstDanceSong":        &out.FirstDanceSong,
		"fatherDaughterSong":    &out.FatherDaughterSong,
		"motherSonSong":         &out.MotherSonSong,
		"bouquetTossSong":       &out.BouquetTossSong,
		"garterTossSong":        &out.GarterTossSong,
		"cakeCuttingSong":       &out.CakeCuttingSong,
		"lastDanceSong":         &out.LastDanceSong,
		"dinnerMusicStyle":      &out.DinnerMusicStyle,
		"specialDances":         &out.SpecialDances,
		"receptionNotes":        &out.ReceptionNotes,
		"musicNotes":            &out.MusicNotes,
	}
	for key, dst := range stringTargets {
		v, present := fields[key]
		if !present {
			continue
		}
		if s := asString(v); s != "" {
			*dst = s
		}
	}

	timeTargets := map[string]*string{
		"ceremonyStartTime": &out.CeremonyStartTime,
		"introductionsTime": &out.IntroductionsTime,
	}
	for key, dst := range timeTargets {
		v, present := fields[key]
		if !present {
			continue
		}
		raw := asString(v)
		if raw == "" {
			continue
		}
		norm := NormalizeTime(raw)
		if norm == "" {
			m.Log.Debug().Str("field", key).Str("value", raw).Msg("unparseable time, leaving blank")
		}
		*dst = norm
	}

	boolTargets := map[string]*bool{
		"ceremonyMicNeeded":    &out.CeremonyMicNeeded,
		"ceremonyAudio":        &out.CeremonyAudio,
		"uplighting":           &out.Uplighting,
		"photoBooth":           &out.PhotoBooth,
		"dancingOnClouds":      &out.DancingOnClouds,
		"coldSparks":           &out.ColdSparks,
		"monogram":             &out.Monogram,
		"anniversaryDance":     &out.AnniversaryDance,
		"privateLastDance":     &out.PrivateLastDance,
		"guestRequestsAllowed": &out.GuestRequestsAllowed,
		"explicitMusicOk":      &out.ExplicitMusicOK,
	}
	for key, dst := range boolTargets {
		v, present := fields[key]
		if !present {
			continue
		}
		if b, ok := asBool(v); ok {
			*dst = b
		}
	}

	intTargets := map[string]*int{
		"guestCount": &out.GuestCount,
	}
	for key, dst := range intTargets {
		v, present := fields[key]
		if !present {
			continue
		}
		if n, ok := asInt(v); ok {
			*dst = n
		}
	}

	return out
}
