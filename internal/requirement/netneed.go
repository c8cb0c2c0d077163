package requirement

// NetNeed returns max(0, theoretical - teacher - helpers - preAssigned).
// Every input is clamped at 0 first so a malformed count can never raise the need.
func NetNeed(theoretical, teacher, helpers, preAssigned int) int {
	t, _ := clamp(theoretical)
	covered := 0
	for _, v := range [...]int{teacher, helpers, preAssigned} {
		c, _ := clamp(v)
		covered += c
	}
	if t <= covered {
		return 0
	}
	return t - covered
}
