package domain

import "time"

// Default app settings written when a profile document is first created
const (
	DefaultRole            = "user"
	DefaultBattingSide     = "왼쪽"
	DefaultDifficulty      = "투어 프로"
	DefaultFieldLengthUnit = "yard"
	DefaultGreenLengthUnit = "meter"
	DefaultTeeHeight       = 45
	DefaultTeePosition     = "Champion Tee"
)

// ProfileSettings holds gameplay preferences
type ProfileSettings struct {
	BattingSide string `json:"battingSide" firestore:"battingSide"`
	Difficulty  string `json:"difficulty" firestore:"difficulty"`
}

// MeasurementSettings holds unit preferences
type MeasurementSettings struct {
	FieldLengthUnit string `json:"fieldLengthUnit" firestore:"fieldLengthUnit"`
	GreenLengthUnit string `json:"greenLengthUnit" firestore:"greenLengthUnit"`
	TeeHeight       int    `json:"teeHeight" firestore:"teeHeight"`
	TeePosition     string `json:"teePosition" firestore:"teePosition"`
}

// Profile is the application document kept next to each account.
// It is a denormalised copy, never the source of truth for identity.
type Profile struct {
	UID         string
	Email       string
	Name        string
	Nickname    string
	Phone       string
	Birthdate   string
	Gender      string
	Provider    Provider
	Role        string
	Settings    ProfileSettings
	Measurement MeasurementSettings
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProfileInput is the data a login path knows about the caller
type ProfileInput struct {
	UID       string
	Email     string
	Name      string
	Nickname  string
	Phone     string
	Birthdate string
	Gender    string
	Provider  Provider
}

// NewProfile builds a profile with default settings, stamped at now
func NewProfile(in ProfileInput, now time.Time) *Profile {
	nickname := in.Nickname
	if nickname == "" {
		nickname = in.Name
	}
	provider := in.Provider
	if provider == "" {
		provider = ProviderEmail
	}

	return &Profile{
		UID:       in.UID,
		Email:     in.Email,
		Name:      in.Name,
		Nickname:  nickname,
		Phone:     in.Phone,
		Birthdate: in.Birthdate,
		Gender:    in.Gender,
		Provider:  provider,
		Role:      DefaultRole,
		Settings: ProfileSettings{
			BattingSide: DefaultBattingSide,
			Difficulty:  DefaultDifficulty,
		},
		Measurement: MeasurementSettings{
			FieldLengthUnit: DefaultFieldLengthUnit,
			GreenLengthUnit: DefaultGreenLengthUnit,
			TeeHeight:       DefaultTeeHeight,
			TeePosition:     DefaultTeePosition,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// MergeFields are written on every upsert. Unknown values are left out so an
// existing document keeps what it has.
func (p *Profile) MergeFields() map[string]interface{} {
	fields := map[string]interface{}{
		"uid":       p.UID,
		"provider":  string(p.Provider),
		"updatedAt": p.UpdatedAt,
	}
	if p.Email != "" {
		fields["email"] = p.Email
	}
	if p.Phone != "" {
		fields["phone"] = p.Phone
	}
	return fields
}

// InsertFields are written only when the document does not exist yet. They
// include MergeFields.
func (p *Profile) InsertFields() map[string]interface{} {
	fields := map[string]interface{}{
		"name":      p.Name,
		"nickname":  p.Nickname,
		"phone":     p.Phone,
		"birthdate": nullable(p.Birthdate),
		"gender":    nullable(p.Gender),
		"role":      p.Role,
		"settings": map[string]interface{}{
			"battingSide": p.Settings.BattingSide,
			"difficulty":  p.Settings.Difficulty,
		},
		"measurement": map[string]interface{}{
			"fieldLengthUnit": p.Measurement.FieldLengthUnit,
			"greenLengthUnit": p.Measurement.GreenLengthUnit,
			"teeHeight":       p.Measurement.TeeHeight,
			"teePosition":     p.Measurement.TeePosition,
		},
		"createdAt": p.CreatedAt,
	}
	for k, v := range p.MergeFields() {
		fields[k] = v
	}
	return fields
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
