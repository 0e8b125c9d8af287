package zone

import (
	"fmt"
	"testing"

	"github.com/fscifa/totepipe/aws/s3"
	"github.com/fscifa/totepipe/aws/s3/mocks"
	"github.com/fscifa/totepipe/columnar"
	"github.com/fscifa/totepipe/tabular"
	"github.com/golang/mock/gomock"
	"github.com/onsi/gomega"
	"github.com/pkg/errors"
)

const (
	ts1 = "2022-11-03T14:20:49.962000"
	ts2 = "2022-11-03T14:30:00.000000"
	ts3 = "2022-11-04T09:00:00.000001"
)

func newBucket(t *testing.T, watermark string, keys ...string) *s3.MemoryClient {
	c := s3.NewMemoryClient("fscifa-raw-data")
	for _, k := range keys {
		if err := c.Put(k, []byte(`{"address": [{"address_id": 1}]}`)); err != nil {
			t.Fatal(err)
		}
	}
	if watermark != "" {
		if err := c.Put("last_updated.txt", []byte(watermark)); err != nil {
			t.Fatal(err)
		}
	}
	return c
}

func TestKey(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	k := Key("sales_order", ts1, "json")
	g.Expect(k).To(gomega.Equal("sales_order/sales_order-2022-11-03T14:20:49.962000.json"))
	table, ts, ext, err := ParseKey(k)
	g.Expect(err).To(gomega.BeNil())
	g.Expect([]string{table, ts, ext}).To(gomega.Equal([]string{"sales_order", ts1, "json"}))

	_, _, _, err = ParseKey("sales_order-2022.json")
	g.Expect(errors.Is(err, ErrIncorrectTableName)).To(gomega.BeTrue())
	_, _, _, err = ParseKey("staff/address-2022.json")
	g.Expect(errors.Is(err, ErrMalformedInput)).To(gomega.BeTrue())
}

func TestSelectLatestReturnsCandidateMatchingWatermark(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := newBucket(t, ts3,
		Key("address", ts1, "json"),
		Key("address", ts3, "json"),
		Key("address", ts2, "json"),
	)
	key, err := NewSelector(c).SelectLatest("address")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(key).To(gomega.Equal(Key("address", ts3, "json")))
}

func TestSelectLatestNoNewData(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	// The newest file is older than the watermark, and an older file matching the
	// watermark exactly is never chosen.
	for _, mark := range []string{ts3, ts1, ts2 + " ", "2022-11-03 14:30:00.000000"} {
		c := newBucket(t, mark, Key("address", ts1, "json"), Key("address", ts2, "json"))
		_, err := NewSelector(c).SelectLatest("address")
		g.Expect(errors.Is(err, ErrNoNewData)).To(gomega.BeTrue(), mark)
		var nnd *NoNewDataError
		g.Expect(errors.As(err, &nnd)).To(gomega.BeTrue())
		g.Expect(nnd.Table).To(gomega.Equal("address"))
		g.Expect(err.Error()).To(gomega.ContainSubstring("address"))
	}
}

func TestSelectLatestPicksLexicographicMaximum(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	stamps := []string{
		"2021-12-31T23:59:59.999999",
		"2022-01-01T00:00:00.000000",
		"2022-01-10T00:00:00.000000",
		"2022-01-09T23:00:00.000000",
	}
	keys := make([]string, 0)
	for _, s := range stamps {
		keys = append(keys, Key("staff", s, "json"))
	}
	c := newBucket(t, "2022-01-10T00:00:00.000000", keys...)
	key, err := NewSelector(c).SelectLatest("staff")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(key).To(gomega.Equal(Key("staff", "2022-01-10T00:00:00.000000", "json")))
}

func TestSelectLatestMatchesDirectoryPrefixOnly(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := newBucket(t, ts1,
		Key("sales_order", ts1, "json"),
		Key("sales_order_line", ts3, "json"),
		"archive/sales_order/sales_order-"+ts3+".json",
	)
	key, err := NewSelector(c).SelectLatest("sales_order")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(key).To(gomega.Equal(Key("sales_order", ts1, "json")))

	_, err = NewSelector(c).SelectLatest("sales")
	g.Expect(errors.Is(err, ErrNotFound)).To(gomega.BeTrue())
}

func TestSelectLatestNotFound(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := newBucket(t, ts1, Key("address", ts1, "json"))
	_, err := NewSelector(c).SelectLatest("design")
	g.Expect(errors.Is(err, ErrNotFound)).To(gomega.BeTrue())
	g.Expect(err.Error()).To(gomega.ContainSubstring("design"))
}

func TestSelectLatestMarkerMissing(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := newBucket(t, "", Key("address", ts1, "json"))
	_, err := NewSelector(c).SelectLatest("address")
	g.Expect(errors.Is(err, ErrMarkerMissing)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, ErrNoNewData)).To(gomega.BeFalse())
}

func TestSelectLatestPropagatesStorageFailures(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	boom := fmt.Errorf("access denied")

	m := mocks.NewMockBasicClient(ctrl)
	m.EXPECT().Bucket().Return("fscifa-raw-data").AnyTimes()
	m.EXPECT().List("address/address-").Return(nil, boom)
	_, err := NewSelector(m).SelectLatest("address")
	g.Expect(errors.Is(err, ErrStorage)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, boom)).To(gomega.BeTrue())
	g.Expect(err.Error()).To(gomega.ContainSubstring("fscifa-raw-data"))

	m.EXPECT().List("address/address-").Return([]string{Key("address", ts1, "json")}, nil)
	m.EXPECT().Get("last_updated.txt").Return(nil, boom)
	_, err = NewSelector(m).SelectLatest("address")
	g.Expect(errors.Is(err, boom)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, ErrMarkerMissing)).To(gomega.BeFalse())
}

func TestWatermark(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := s3.NewMemoryClient("b")
	w := NewWatermark(c)
	_, err := w.Read()
	g.Expect(errors.Is(err, ErrMarkerMissing)).To(gomega.BeTrue())

	g.Expect(w.Write(ts1)).To(gomega.Succeed())
	got, err := w.Read()
	g.Expect(err).To(gomega.BeNil())
	g.Expect(got).To(gomega.Equal(ts1))

	err = w.Write("2022-11-03 14:20:49")
	g.Expect(errors.Is(err, ErrMalformedInput)).To(gomega.BeTrue())
	g.Expect(NewLoadMarker(c).Key()).To(gomega.Equal("last_loaded.txt"))
}

func TestLoaderErrors(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := newBucket(t, ts1, Key("address", ts1, "json"))
	l := NewRawLoader(c)

	_, err := l.Load(Key("address", ts1, "json"), "staff")
	g.Expect(errors.Is(err, ErrMalformedInput)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, ErrIncorrectTableName)).To(gomega.BeTrue())

	_, err = l.Load(Key("address", ts1, "parquet"), "address")
	g.Expect(errors.Is(err, ErrWrongFileType)).To(gomega.BeTrue())

	_, err = l.Load(Key("address", ts2, "json"), "address")
	g.Expect(errors.Is(err, ErrStorage)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, s3.ErrKeyNotFound)).To(gomega.BeTrue())
	g.Expect(err.Error()).To(gomega.ContainSubstring("fscifa-raw-data"))

	g.Expect(c.Put(Key("address", ts3, "json"), []byte(`{"staff": []}`))).To(gomega.Succeed())
	_, err = l.Load(Key("address", ts3, "json"), "address")
	g.Expect(errors.Is(err, ErrMalformedInput)).To(gomega.BeTrue())
	g.Expect(errors.Is(err, tabular.ErrMalformedRecords)).To(gomega.BeTrue())
}

func TestZoneLatestNewestAll(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	c := s3.NewMemoryClient("raw")
	g.Expect(c.Put(Key("department", ts1, "json"), []byte(`{"department": [{"department_id": 1, "department_name": "Sales"}]}`))).To(gomega.Succeed())
	g.Expect(c.Put(Key("department", ts2, "json"), []byte(`{"department": [{"department_id": 2, "department_name": "Purchasing"}]}`))).To(gomega.Succeed())
	g.Expect(c.Put("last_updated.txt", []byte(ts1))).To(gomega.Succeed())
	z := NewRawZone(c)

	_, err := z.Latest("department")
	g.Expect(errors.Is(err, ErrNoNewData)).To(gomega.BeTrue())

	d, err := z.Newest("department")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(d.Row(0).Get("department_name")).To(gomega.Equal("Purchasing"))

	all, err := z.All("department")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(all).To(gomega.HaveLen(2))
	g.Expect(all[0].Row(0).Get("department_id")).To(gomega.Equal(int64(1)))
}

func TestProcessedZoneReadsParquet(t *testing.T) {
	g := gomega.NewGomegaWithT(t)
	d := tabular.New("design_id", "design_name")
	g.Expect(d.Append(int64(8), "Wooden")).To(gomega.Succeed())
	codec, _ := columnar.ParseCodec("snappy")
	b, err := columnar.Encode(d, codec)
	g.Expect(err).To(gomega.BeNil())

	c := s3.NewMemoryClient("fscifa-processed-data")
	g.Expect(c.Put(Key("dim_design", ts1, "parquet"), b)).To(gomega.Succeed())
	g.Expect(NewWatermark(c).Write(ts1)).To(gomega.Succeed())

	got, err := NewProcessedZone(c).Latest("dim_design")
	g.Expect(err).To(gomega.BeNil())
	g.Expect(got.Columns()).To(gomega.Equal([]string{"design_id", "design_name"}))
	g.Expect(got.Row(0).Get("design_name")).To(gomega.Equal("Wooden"))
}
