package labels

import "github.com/pkg/errors"

// COCO is the 80 COCO classes with no background entry, as emitted by
// anchor-free detectors such as NanoDet.
var COCO = []string{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove",
	"skateboard", "surfboard", "tennis racket", "bottle", "wine glass", "cup", "fork", "knife", "spoon",
	"bowl", "banana", "apple", "sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut",
	"cake", "chair", "couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// COCOBackground is COCO with "__background__" at index 0, the layout SSD
// exports use for their class column.
var COCOBackground = append([]string{"__background__"}, COCO...)

// VOC is the 20 Pascal VOC classes with "__background__" at index 0.
var VOC = []string{
	"__background__", "aeroplane", "bicycle", "bird", "boat", "bottle", "bus", "car", "cat", "chair",
	"cow", "diningtable", "dog", "horse", "motorbike", "person", "pottedplant", "sheep", "sofa",
	"train", "tvmonitor",
}

var builtins = map[string][]string{
	"coco":            COCO,
	"coco-background": COCOBackground,
	"voc":             VOC,
}

// Builtin returns a compiled-in table by name: "coco", "coco-background" or "voc".
func Builtin(name string) (*Table, error) {
	names, ok := builtins[name]
	if !ok {
		return nil, errors.Errorf("unknown builtin label set %q", name)
	}
	return New(names)
}
