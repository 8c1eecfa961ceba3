package model_test

import (
	"testing"

	"github.com/okian/debtshare/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChain(t *testing.T) {
	Convey("Given the known chains", t, func() {
		Convey("Then they should be distinct and printable", func() {
			So(model.Primary, ShouldNotEqual, model.Secondary)
			So(string(model.Primary), ShouldEqual, "l1")
			So(string(model.Secondary), ShouldEqual, "l2")
		})
	})

	Convey("Given a zero-value holder record", t, func() {
		var h model.HolderRecord

		Convey("Then its fixed-point fields should be nil", func() {
			So(h.InitialDebtOwnership, ShouldBeNil)
			So(h.DebtEntryAtIndex, ShouldBeNil)
		})
	})
}
