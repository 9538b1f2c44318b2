package scout

import "math"

// AnalyzeEngagement averages views over the given videos and computes the
// engagement rate as (likes + comments) / views, in percent with two decimals.
func AnalyzeEngagement(videos []VideoStats) Engagement {
	if len(videos) == 0 {
		return Engagement{}
	}
	var views, interactions int64
	for _, v := range videos {
		views += v.Plays
		interactions += v.Likes + v.Comments
	}
	eng := Engagement{
		AvgViews:      int64(math.Round(float64(views) / float64(len(videos)))),
		VideosChecked: len(videos),
	}
	if views > 0 {
		eng.ER = math.Round(float64(interactions)/float64(views)*100*100) / 100
	}
	return eng
}
