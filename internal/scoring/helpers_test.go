package scoring_test

import (
	"maps"

	"CaseLifecycle/internal/models/domain"
)

func choice(values ...string) domain.Answer { return domain.Answer{Values: values} }

func number(n float64) domain.Answer { return domain.Answer{Number: &n} }

func text(s string) domain.Answer { return domain.Answer{Text: s} }

func photo(ref string) domain.Answer { return domain.Answer{Photos: []string{ref}} }

// perfectConventional answers every required conventional question with its best option.
func perfectConventional() map[string]domain.Answer {
	return map[string]domain.Answer{
		"paint_condition":    choice("excellent"),
		"seat_condition":     choice("excellent"),
		"dashboard_warnings": choice("no"),
		"interior_rating":    number(5),
		"engine_start":       choice("starts_easily"),
		"fluid_leaks":        choice("none"),
		"check_engine_light": choice("no"),
		"transmission_shift": choice("smooth"),
		"odometer_reading":   number(85000),
		"tire_tread":         choice("good"),
		"brake_performance":  number(5),
		"title_status":       choice("clean"),
		"vin_plate_photo":    photo("uploads/vin.jpg"),
		"key_count":          number(2),
	}
}

// perfectElectric answers every required electric question with its best option.
func perfectElectric() map[string]domain.Answer {
	return map[string]domain.Answer{
		"ev_paint_condition":    choice("excellent"),
		"charge_port_door":      choice("works"),
		"ev_seat_condition":     choice("excellent"),
		"infotainment":          number(5),
		"ev_dashboard_warnings": choice("no"),
		"battery_health":        choice("above_90"),
		"range_estimate":        number(420),
		"motor_noise":           choice("no"),
		"regen_braking":         number(5),
		"high_voltage_warnings": choice("none"),
		"ac_charging":           choice("yes"),
		"dc_fast_charging":      choice("works"),
		"ev_tire_tread":         choice("good"),
		"ev_brake_performance":  number(5),
	}
}

func with(base map[string]domain.Answer, overrides map[string]domain.Answer) map[string]domain.Answer {
	out := maps.Clone(base)
	maps.Copy(out, overrides)
	return out
}

func without(base map[string]domain.Answer, ids ...string) map[string]domain.Answer {
	out := maps.Clone(base)
	for _, id := range ids {
		delete(out, id)
	}
	return out
}
