package repository

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"formbridge/internal/model"
)

var _ = Describe("form replacement document", func() {
	form := func() *model.Form {
		return &model.Form{
			ID:      primitive.NewObjectID().Hex(),
			Title:   "Onboarding",
			Creator: "u1",
			Status:  model.FormPublished,
			Questions: []model.Question{
				{ID: "q1", Type: model.QuestionText, Question: "Full Name"},
			},
			Version: 4,
		}
	}

	It("marshals without an _id field", func() {
		data, err := bson.Marshal(replacementDoc(form()))
		Expect(err).NotTo(HaveOccurred())

		_, lookupErr := bson.Raw(data).LookupErr("_id")
		Expect(lookupErr).To(HaveOccurred())
	})

	It("would otherwise marshal the hex id as a string _id", func() {
		// The stored _id is an ObjectID; a string _id in the
		// replacement would alter the immutable field and fail the
		// write.
		data, err := bson.Marshal(form())
		Expect(err).NotTo(HaveOccurred())
		Expect(bson.Raw(data).Lookup("_id").Type).To(Equal(bson.TypeString))
	})

	It("keeps every other field intact", func() {
		original := form()
		data, err := bson.Marshal(replacementDoc(original))
		Expect(err).NotTo(HaveOccurred())

		var decoded model.Form
		Expect(bson.Unmarshal(data, &decoded)).To(Succeed())
		Expect(decoded.Title).To(Equal("Onboarding"))
		Expect(decoded.Creator).To(Equal("u1"))
		Expect(decoded.Version).To(Equal(int64(4)))
		Expect(decoded.Questions).To(HaveLen(1))
		Expect(decoded.Questions[0].Question).To(Equal("Full Name"))

		// The caller's form is untouched
		Expect(original.ID).NotTo(BeEmpty())
	})
})
