package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/admin/astro-agent/internal/domain"
	"github.com/admin/astro-agent/internal/usecases/onboarding"
	"github.com/admin/astro-agent/internal/usecases/profile"
)

func fieldNames() []string {
	out := make([]string, len(profile.Fields))
	for i, f := range profile.Fields {
		out[i] = string(f)
	}
	return out
}

func updateProfileTool(deps Deps) *Tool {
	return &Tool{
		Name: "update_user_profile",
		Description: "Save a piece of personal information the user shared: name, gender, birth date, birth time, " +
			"birth city or current city. Call it once per field. The natal chart is calculated automatically " +
			"as soon as birth date and birth city are known.",
		Action: "saving your profile",
		Params: []Param{
			{Name: "field", Type: TypeString, Description: "Which profile field to update", Required: true, Enum: fieldNames()},
			{Name: "value", Type: TypeString, Description: "The value exactly as the user gave it, e.g. \"June 15 1990\", \"around 3pm\", \"Paris, France\"", Required: true},
			{Name: "needs_geocoding", Type: TypeBoolean, Description: "Look up coordinates for a city name. Defaults to true for city fields; pass false with a \"lat, lon\" value"},
		},
		Handler: func(ctx context.Context, tc *TurnContext, args Args) (string, error) {
			field, ok := profile.ParseField(args.String("field"))
			if !ok {
				return "", fmt.Errorf("%w: %s", domain.ErrInvalidField, args.String("field"))
			}
			needsGeocoding := field.IsLocation()
			if args.Has("needs_geocoding") {
				needsGeocoding = args.Bool("needs_geocoding")
			}

			res, err := deps.Profiles.UpdateField(ctx, tc.UserID, field, args.String("value"), needsGeocoding)
			if err != nil {
				return "", err
			}
			tc.Profile = res.Profile
			if res.ChartStatus == profile.ChartCreated || res.ChartStatus == profile.ChartRecomputed {
				tc.ChartUpdated = true
			}
			return updateMessage(res), nil
		},
	}
}

func updateMessage(res *profile.UpdateResult) string {
	label := strings.ReplaceAll(string(res.Field), "_", " ")

	var b strings.Builder
	if res.Changed {
		fmt.Fprintf(&b, "Saved %s: %s.", label, fieldValue(res.Profile, res.Field))
	} else {
		fmt.Fprintf(&b, "No change: %s was already %s.", label, fieldValue(res.Profile, res.Field))
	}

	switch res.ChartStatus {
	case profile.ChartCreated:
		fmt.Fprintf(&b, " Natal chart calculated: %s.", bigThree(res.Profile.NatalChart))
		if res.Profile.BirthData != nil && res.Profile.BirthData.Time == nil {
			b.WriteString(" Birth time is not known yet, so noon was used and the rising sign may be off.")
		}
	case profile.ChartRecomputed:
		fmt.Fprintf(&b, " Natal chart recalculated: %s.", bigThree(res.Profile.NatalChart))
	case profile.ChartPending:
		fmt.Fprintf(&b, " The natal chart still needs: %s.", onboarding.FieldNames(res.Missing))
	case profile.ChartFailed:
		b.WriteString(" The details were saved, but the natal chart could not be calculated right now.")
	}

	state := onboarding.Evaluate(res.Profile)
	if next := state.NextQuestion(); next != "" {
		fmt.Fprintf(&b, " Next question to ask: %s", next.FriendlyPrompt())
	}
	return b.String()
}

func fieldValue(p *domain.UserProfile, f profile.Field) string {
	switch f {
	case profile.FieldName:
		if p.Name != nil {
			return *p.Name
		}
	case profile.FieldGender:
		if p.Gender != nil {
			return string(*p.Gender)
		}
	case profile.FieldBirthDate:
		if d := p.BirthDateString(); d != "" {
			return d
		}
	case profile.FieldBirthTime:
		if p.BirthData != nil {
			if p.BirthData.Time != nil {
				return p.BirthData.Time.String()
			}
			if p.BirthData.TimeUnknown {
				return "unknown"
			}
		}
	case profile.FieldBirthCity:
		if p.BirthData != nil && p.BirthData.Location != nil {
			return p.BirthData.Location.String()
		}
	case profile.FieldCurrentCity:
		if p.CurrentLocation != nil {
			return p.CurrentLocation.String()
		}
	}
	return "not set"
}

func onboardingStatusTool() *Tool {
	return &Tool{
		Name:        "get_onboarding_status",
		Description: "Check which profile details are still missing and what to ask next.",
		Action:      "checking your profile",
		Handler: func(_ context.Context, tc *TurnContext, _ Args) (string, error) {
			return onboarding.Status(onboarding.Evaluate(tc.Profile)), nil
		},
	}
}
