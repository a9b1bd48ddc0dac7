package strategy

// BullishPatterns returns the primary long-side pattern columns.
func BullishPatterns() []string {
	return []string{
		"pattern_inside_bar",
		"pattern_bullish_engulfing",
		"pattern_bullish_pin",
		"pattern_hammer",
		"pattern_morning_star",
		"pattern_three_white_soldiers",
		"pattern_breakout_20",
		"pattern_breakout_10",
		"pattern_range_expansion",
		"pattern_outside_bar",
		"pattern_harami_bull",
		"pattern_tweezer_bottom",
		"pattern_marubozu_bull",
	}
}

// BearishPatterns returns the short-side pattern columns.
func BearishPatterns() []string {
	return []string{
		"pattern_bearish_engulfing",
		"pattern_bearish_pin",
		"pattern_shooting_star",
		"pattern_evening_star",
		"pattern_three_black_crows",
		"pattern_breakdown_20",
		"pattern_breakdown_10",
		"pattern_harami_bear",
		"pattern_tweezer_top",
		"pattern_marubozu_bear",
	}
}
