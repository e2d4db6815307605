package score_test

import (
	"encoding/json"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wodsmith/ranking/internal/domain/score"
)

func TestNormalize(t *testing.T) {
	Convey("Given a capped chipper with a reps tiebreak", t, func() {
		w := score.Workout{
			Scheme:         score.SchemeTimeWithCap,
			TimeCapSeconds: 900,
			TiebreakScheme: score.SchemeReps,
		}

		Convey("When a clean finish is entered", func() {
			ns, err := score.Normalize("ath-1", "12:34", "", w)
			So(err, ShouldBeNil)
			So(ns.AthleteID, ShouldEqual, "ath-1")
			So(ns.HasValue, ShouldBeTrue)
			So(ns.Value, ShouldEqual, 754_000)
			So(ns.Status, ShouldEqual, score.StatusScored)
			So(ns.Secondary, ShouldBeNil)
		})

		Convey("When a capped athlete enters completed reps", func() {
			ns, err := score.Normalize("ath-2", "CAP", "187", w)
			So(err, ShouldBeNil)
			So(ns.Status, ShouldEqual, score.StatusCap)
			So(ns.Value, ShouldEqual, 900_000)
			So(*ns.Secondary, ShouldEqual, 187)
		})

		Convey("When the entry is invalid", func() {
			_, err := score.Normalize("ath-3", "16:00", "", w)
			So(err, ShouldNotBeNil)
			So(errors.Is(err, score.ErrInvalidScore), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Time cannot exceed cap of 15:00")
			So(score.IsInvalid(err), ShouldBeTrue)
		})

		Convey("When the tiebreak is malformed", func() {
			_, err := score.Normalize("ath-4", "CAP", "lots", w)
			So(score.IsInvalid(err), ShouldBeTrue)
		})

		Convey("When the athlete id is missing", func() {
			_, err := score.Normalize(" ", "10:00", "", w)
			So(score.IsInvalid(err), ShouldBeTrue)
		})
	})

	Convey("Given a workout without a tiebreak", t, func() {
		w := score.Workout{Scheme: score.SchemeReps}

		Convey("Then a tiebreak entry is rejected", func() {
			_, err := score.Normalize("ath-1", "100", "3:00", w)
			So(score.IsInvalid(err), ShouldBeTrue)
		})

		Convey("Then withdrawn entries carry no value", func() {
			ns := score.Withdrawn("ath-9")
			So(ns.Status, ShouldEqual, score.StatusWithdrawn)
			So(ns.HasValue, ShouldBeFalse)
		})
	})
}

func TestStatus_Text(t *testing.T) {
	Convey("Given the closed set of statuses", t, func() {
		all := []score.Status{score.StatusScored, score.StatusDNS, score.StatusDNF, score.StatusCap, score.StatusWithdrawn}

		Convey("Then each survives a JSON round trip", func() {
			for _, st := range all {
				b, err := json.Marshal(st)
				So(err, ShouldBeNil)
				var back score.Status
				So(json.Unmarshal(b, &back), ShouldBeNil)
				So(back, ShouldEqual, st)
			}
		})

		Convey("Then only scored and cap are active", func() {
			So(score.StatusScored.Active(), ShouldBeTrue)
			So(score.StatusCap.Active(), ShouldBeTrue)
			So(score.StatusDNF.Active(), ShouldBeFalse)
			So(score.StatusDNS.Active(), ShouldBeFalse)
			So(score.StatusWithdrawn.Active(), ShouldBeFalse)
		})

		Convey("Then unknown text is rejected", func() {
			_, err := score.ParseStatus("injured")
			So(errors.Is(err, score.ErrInvalidScore), ShouldBeTrue)
			So(score.Status(42).String(), ShouldEqual, "status(42)")
		})
	})
}
