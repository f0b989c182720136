package emotion_test

import (
	"testing"

	"github.com/okian/moodtune/internal/domain/emotion"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDescribe(t *testing.T) {
	Convey("Given verdicts of each confidence tier", t, func() {
		Convey("When the verdict is high confidence with many secondaries", func() {
			v, err := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{
				emotion.Happiness:  0.9,
				emotion.Confidence: 0.6,
				emotion.Love:       0.6,
				emotion.Excitement: 0.6,
				emotion.Optimism:   0.6,
			}), 0.5)
			So(err, ShouldBeNil)
			text := emotion.Describe(v)

			Convey("Then it should cap the secondary list at three", func() {
				So(text, ShouldStartWith, "Your text expresses strong **Happiness** (90% confidence). ")
				So(text, ShouldContainSubstring, "Secondary emotions detected include **Confidence**, **Love**, **Excitement**. ")
				So(text, ShouldNotContainSubstring, "Optimism")
				So(text, ShouldEndWith, "The emotional tone is clear and well-defined.")
			})
		})

		Convey("When the verdict is medium confidence without secondaries", func() {
			v, _ := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{emotion.Nostalgia: 0.6}), 0.5)
			text := emotion.Describe(v)

			Convey("Then it should mention a blend of feelings", func() {
				So(text, ShouldEqual, "Your text expresses strong **Nostalgia** (60% confidence). The emotional tone suggests a blend of feelings.")
			})
		})

		Convey("When the verdict is low confidence", func() {
			v, _ := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{emotion.Confusion: 0.3}), 0.5)

			Convey("Then it should call the tone subtle", func() {
				So(emotion.Describe(v), ShouldEndWith, "The emotional tone is subtle or mixed.")
			})
		})
	})
}

func TestFallbackSummary(t *testing.T) {
	Convey("Given a verdict with four secondary labels", t, func() {
		v, _ := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{
			emotion.Sadness:     0.85,
			emotion.Fear:        0.6,
			emotion.Nostalgia:   0.6,
			emotion.Frustration: 0.6,
			emotion.Longing:     0.6,
		}), 0.5)

		Convey("Then the fallback should list only the first three", func() {
			So(emotion.FallbackSummary(v), ShouldEqual,
				"Your text expresses **Sadness** (85% confidence). Secondary emotions: Fear, Nostalgia, Frustration.")
		})
	})

	Convey("Given a verdict without secondary labels", t, func() {
		v, _ := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{emotion.Anger: 0.9}), 0.5)

		Convey("Then the fallback should only name the primary label", func() {
			So(emotion.FallbackSummary(v), ShouldEqual, "Your text expresses **Anger** (90% confidence).")
		})
	})
}

func TestSummarizeWords(t *testing.T) {
	Convey("Given word importances toward the primary label", t, func() {
		v, _ := emotion.BuildVerdict(scoresWith(0.1, map[string]float64{
			emotion.Happiness: 0.9,
			emotion.Love:      0.6,
			emotion.Optimism:  0.6,
			emotion.Surprise:  0.6,
		}), 0.5)
		importance := map[string]float64{
			"sunny":   0.4,
			"great":   0.3,
			"friends": 0.2,
			"today":   0.1,
			"tired":   -0.5,
		}

		Convey("Then the summary should list the top three positive words and two secondaries", func() {
			So(emotion.SummarizeWords(v, importance), ShouldEqual,
				"Your text expresses **Happiness** (90% confidence). "+
					"Key words contributing to this emotion include 'sunny', 'great', 'friends'. "+
					"Secondary emotions detected: Surprise, Love.")
		})

		Convey("Then TopWords should rank by absolute importance", func() {
			top := emotion.TopWords(importance, 2)
			So(top, ShouldResemble, []emotion.WordWeight{
				{Word: "tired", Importance: -0.5},
				{Word: "sunny", Importance: 0.4},
			})
		})

		Convey("Then an empty importance map should give a bare summary", func() {
			So(emotion.SummarizeWords(v, nil), ShouldEqual,
				"Your text expresses **Happiness** (90% confidence). Secondary emotions detected: Surprise, Love.")
			So(emotion.TopWords(nil, 5), ShouldBeEmpty)
		})
	})
}
