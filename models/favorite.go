package models

// Occasion is the enumerated context an outfit is generated for
type Occasion string

const (
	OccasionTrabajo Occasion = "trabajo"
	OccasionCita    Occasion = "cita"
	OccasionGala    Occasion = "gala"
	OccasionCasual  Occasion = "casual"
	OccasionDeporte Occasion = "deporte"
	OccasionViaje   Occasion = "viaje"
	OccasionFiesta  Occasion = "fiesta"
	OccasionBoda    Occasion = "boda"
)

// IsValid reports whether o is one of the eight known occasions.
func (o Occasion) IsValid() bool {
	switch o {
	case OccasionTrabajo, OccasionCita, OccasionGala, OccasionCasual,
		OccasionDeporte, OccasionViaje, OccasionFiesta, OccasionBoda:
		return true
	}
	return false
}

// TimeOfDay is the enumerated lighting context for outfit generation
type TimeOfDay string

const (
	TimeDia       TimeOfDay = "dia"
	TimeAtardecer TimeOfDay = "atardecer"
	TimeNoche     TimeOfDay = "noche"
)

// IsValid reports whether t is one of the three known times of day.
func (t TimeOfDay) IsValid() bool {
	switch t {
	case TimeDia, TimeAtardecer, TimeNoche:
		return true
	}
	return false
}

// FavoriteItem is a saved outfit image, bucketed by occasion.
// Feedback is "like", "dislike" or empty.
type FavoriteItem struct {
	ID        string `bson:"id" json:"id"`
	ImageKey  string `bson:"image_key" json:"image_key"`
	Occasion  string `bson:"occasion" json:"occasion"`
	Feedback  string `bson:"feedback,omitempty" json:"feedback,omitempty"`
	Timestamp int64  `bson:"timestamp" json:"timestamp"`
}
