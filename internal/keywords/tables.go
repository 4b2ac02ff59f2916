package keywords

// Raw keyword tables. Weights are retuned from observed false positive and
// negative rates, so they live here rather than being spread through code.

var rawCore = []rawWeighted{
	{"انتخابات", 4, 2}, {"انتخاباتی", 4, 2},
	{"ریاست جمهوری", 4, 2}, {"ریاستجمهوری", 4, 2},
	{"مجلس شورای اسلامی", 4, 2},
	{"نامزد انتخابات", 5, 3}, {"نامزد انتخاباتی", 5, 3},
	{"کاندیدا", 4, 2}, {"کاندیدای", 4, 2},
	{"داوطلب انتخابات", 5, 3},
	{"ثبتنام داوطلب", 5, 3}, {"ثبتنام انتخابات", 5, 3},
	{"رد صلاحیت", 5, 3}, {"تایید صلاحیت", 5, 3},
	{"احراز صلاحیت", 5, 3}, {"بررسی صلاحیت", 4, 2},
	{"شورای نگهبان", 4, 2}, {"هیئت نظارت", 4, 2},
	{"ستاد انتخابات", 4, 2}, {"ستاد انتخاباتی", 4, 2},
	{"حوزه انتخابیه", 4, 2}, {"تبلیغات انتخاباتی", 4, 2},
	{"صندوق رای", 4, 2}, {"رایگیری", 4, 2}, {"رای گیری", 4, 2},
	{"مشارکت انتخاباتی", 4, 2}, {"دور دوم انتخابات", 5, 3},
	{"لیست انتخاباتی", 4, 2}, {"ائتلاف انتخاباتی", 4, 2},
	{"شورای شهر", 3, 1}, {"شورای اسلامی", 3, 1},
	{"شوراهای اسلامی", 3, 1},
	{"election", 4, 2}, {"elections", 4, 2}, {"electoral", 4, 2},
	{"candidate", 4, 2}, {"ballot", 4, 2}, {"voting", 4, 2},
	{"presidential", 4, 2}, {"parliamentary", 4, 2},
	{"runoff", 4, 2}, {"disqualification", 5, 3},
}

var rawContextual = []rawWeighted{
	{"نماینده مجلس", 2, 1}, {"نمایندگان مجلس", 2, 1},
	{"فراکسیون", 2, 1}, {"مناظره", 3, 1},
	{"مناظره انتخاباتی", 4, 2}, {"وعده انتخاباتی", 4, 2},
	{"برنامه انتخاباتی", 4, 2}, {"اگر انتخاب شوم", 5, 3},
	{"در صورت انتخاب", 5, 3}, {"بیانیه انتخاباتی", 4, 2},
	{"اصلاحطلب", 2, 1}, {"اصلاحطلبان", 2, 1},
	{"اصولگرا", 2, 1}, {"اصولگرایان", 2, 1},
	{"حزب", 1, 0}, {"جبهه", 1, 0},
	{"دولت آینده", 2, 1}, {"مجلس آینده", 2, 1},
	{"رئیس جمهور", 2, 1}, {"رئیسجمهور", 2, 1},
	{"نظرسنجی", 3, 2}, {"نظرسنجی انتخاباتی", 4, 2},
	{"debate", 3, 1}, {"polling", 3, 2},
	{"campaign", 2, 1}, {"manifesto", 3, 2},
}

// Rejection keywords are a binary veto regardless of score.
var rawRejection = []string{
	"فیلم سینمایی", "سریال تلویزیونی", "بازیگر سینما",
	"لیگ برتر فوتبال", "جام جهانی فوتبال", "والیبال",
	"بیت کوین", "ارز دیجیتال", "رمزارز",
	"زلزله", "آتش سوزی", "تصادف رانندگی",
	"آشپزی", "رسپی غذا", "فال روز", "طالع بینی",
	"هواشناسی فردا",
}

var knownCandidates = []string{
	"پزشکیان", "جلیلی", "قالیباف", "زاکانی",
	"لاریجانی", "روحانی", "احمدینژاد",
	"رضایی", "همتی", "مهرعلیزاده",
	"جهانگیری", "واعظی", "ظریف",
	"میرسلیم", "پورمحمدی",
}

var topicGroups = []struct {
	name     string
	keywords []string
}{
	{"صلاحیت", []string{"رد صلاحیت", "تایید صلاحیت", "احراز صلاحیت", "بررسی صلاحیت", "شورای نگهبان"}},
	{"ثبت‌نام", []string{"ثبتنام", "داوطلب انتخابات", "نامزد انتخابات"}},
	{"تبلیغات", []string{"تبلیغات انتخاباتی", "ستاد انتخاباتی", "مناظره"}},
	{"رای‌گیری", []string{"رایگیری", "رای گیری", "صندوق رای", "مشارکت انتخاباتی"}},
	{"نتایج", []string{"نتایج انتخابات", "شمارش آرا", "پیروز انتخابات"}},
	{"مجلس", []string{"مجلس شورای اسلامی", "نماینده مجلس", "نمایندگان مجلس"}},
	{"شورا", []string{"شورای شهر", "شورای اسلامی", "شوراهای اسلامی"}},
}

var hashtagMap = []HashtagRule{
	{"انتخابات", "#انتخابات"}, {"ریاست", "#ریاست_جمهوری"},
	{"مجلس", "#مجلس"}, {"شورا", "#شورای_شهر"},
	{"کاندیدا", "#کاندیدا"}, {"نامزد", "#نامزد_انتخاباتی"},
	{"ثبتنام", "#ثبت_نام"}, {"صلاحیت", "#صلاحیت"},
	{"شورای نگهبان", "#شورای_نگهبان"}, {"مناظره", "#مناظره"},
	{"مشارکت", "#مشارکت"}, {"نمایندگان", "#نمایندگان"},
	{"اصلاحطلب", "#اصلاح_طلبان"}, {"اصولگرا", "#اصولگرایان"},
	{"election", "#Election"}, {"candidate", "#Candidate"},
	{"parliament", "#Parliament"}, {"presidential", "#Presidential"},
}
